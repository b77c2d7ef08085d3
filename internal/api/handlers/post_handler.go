package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/contentpilot/internal/models"
	"github.com/maheshrc27/contentpilot/internal/service"
	"github.com/maheshrc27/contentpilot/internal/transfer"
)

const maxUploadSize = 25 << 20

type PostHandler struct {
	posts   service.PostService
	actions service.ActionService
	publish service.PublishService
}

func NewPostHandler(posts service.PostService, actions service.ActionService, publish service.PublishService) *PostHandler {
	return &PostHandler{posts: posts, actions: actions, publish: publish}
}

// Register mounts the post routes on r.
func (h *PostHandler) Register(r fiber.Router) {
	r.Get("/clients", h.ListClients)
	r.Get("/clients/:client/posts", h.ListPosts)
	r.Post("/clients/:client/foundation/autoschedule", h.AutoscheduleFoundation)

	r.Post("/posts/upload", h.Upload)
	r.Get("/posts/:id", h.GetPost)
	r.Get("/posts/:id/history", h.History)
	r.Post("/posts/:id/approve", h.Approve)
	r.Post("/posts/:id/schedule", h.Schedule)
	r.Post("/posts/:id/post", h.Post)
	r.Post("/posts/:id/revert", h.Revert)
	r.Post("/posts/:id/mark-posted/:platform", h.MarkPosted)
	r.Post("/posts/:id/publish", h.Publish)
}

func (h *PostHandler) ListClients(c *fiber.Ctx) error {
	clients, err := h.posts.Clients(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	if clients == nil {
		clients = []string{}
	}
	return c.JSON(fiber.Map{"clients": clients})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	client := c.Params("client")
	posts, err := h.posts.Get(c.Context(), client)
	if err != nil {
		return errorResponse(c, err)
	}

	if status := c.Query("status"); status != "" {
		want := models.ParseStatus(status)
		filtered := posts[:0]
		for _, p := range posts {
			if p.Status == want {
				filtered = append(filtered, p)
			}
		}
		posts = filtered
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return c.JSON(fiber.Map{"client": client, "posts": posts})
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.posts.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) History(c *fiber.Ctx) error {
	history, err := h.publish.History(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"post_id": c.Params("id"), "history": history})
}

func (h *PostHandler) Approve(c *fiber.Ctx) error {
	res, err := h.actions.Approve(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	slog.Info("approve requested", "post_id", res.PostID, "operator", GetOperator(c))
	return c.JSON(res)
}

func (h *PostHandler) Schedule(c *fiber.Ctx) error {
	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "InvalidSchedule",
		})
	}

	at, ok := models.ParsePublishAt(req.PublishAt)
	if !ok {
		return errorResponse(c, service.ErrInvalidSchedule)
	}

	res, err := h.actions.Schedule(c.Context(), c.Params("id"), at, req.Platforms)
	if err != nil {
		return errorResponse(c, err)
	}
	slog.Info("schedule requested", "post_id", res.PostID, "operator", GetOperator(c))
	return c.JSON(res)
}

func (h *PostHandler) Post(c *fiber.Ctx) error {
	res, err := h.actions.Post(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(res)
}

func (h *PostHandler) Revert(c *fiber.Ctx) error {
	res, err := h.actions.Revert(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(res)
}

func (h *PostHandler) MarkPosted(c *fiber.Ctx) error {
	res, err := h.actions.MarkPlatformPosted(c.Context(), c.Params("id"), c.Params("platform"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(res)
}

// Publish runs the orchestrator now, or schedules when publish_at is given.
func (h *PostHandler) Publish(c *fiber.Ctx) error {
	var req transfer.PublishRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	var publishAt *time.Time
	if req.PublishAt != "" {
		at, ok := models.ParsePublishAt(req.PublishAt)
		if !ok {
			return errorResponse(c, service.ErrInvalidSchedule)
		}
		publishAt = &at
	}

	out, err := h.publish.Publish(c.Context(), c.Params("id"), publishAt)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(out)
}

func (h *PostHandler) Upload(c *fiber.Ctx) error {
	client := c.FormValue("client")
	platform := c.FormValue("platform")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file selected",
			"code":  "InvalidUpload",
		})
	}
	if fileHeader.Size > maxUploadSize {
		return errorResponse(c, fmt.Errorf("%w: file exceeds %d bytes", service.ErrInvalidUpload, maxUploadSize))
	}

	f, err := fileHeader.Open()
	if err != nil {
		return errorResponse(c, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return errorResponse(c, err)
	}

	post, err := h.actions.Upload(c.Context(), client, platform, fileHeader.Filename, data)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) AutoscheduleFoundation(c *fiber.Ctx) error {
	res, err := h.actions.AutoscheduleFoundation(c.Context(), c.Params("client"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(res)
}
