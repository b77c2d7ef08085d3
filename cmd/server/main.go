package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/contentpilot/configs"
	"github.com/maheshrc27/contentpilot/internal/api/handlers"
	"github.com/maheshrc27/contentpilot/internal/api/middleware"
	"github.com/maheshrc27/contentpilot/internal/app"
	"github.com/robfig/cron"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialise: %v", err)
	}
	defer a.Close()

	clients, err := a.Posts.Clients(ctx)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to list clients: %v", err)
	}
	for _, client := range clients {
		if err := a.Layout.EnsureDirs(client); err != nil {
			slog.Warn("could not create asset folders", "client", client, "error", err)
		}
	}

	server := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    32 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			log.Printf("Error: %v", err)
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	server.Use(logger.New())
	server.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	server.Static(cfg.StaticPrefix, cfg.ClientsDir)
	server.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	authMiddleware := middleware.NewAuthMiddleware(*cfg)
	api := server.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())
	handlers.NewPostHandler(a.Posts, a.Actions, a.Publish).Register(api)

	c := cron.New()
	if err := c.AddFunc(fmt.Sprintf("@every %s", cfg.PollInterval), a.Job.Run); err != nil {
		log.Fatalf("Invalid poll interval %s: %v", cfg.PollInterval, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server is running on http://localhost:%s", cfg.Port)
		return server.Listen(":" + cfg.Port)
	})

	if worker, mux := a.NewWorker(); worker != nil {
		if err := worker.Start(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			worker.Shutdown()
			return nil
		})
	}

	c.Start()
	log.Printf("Scheduler polling every %s", cfg.PollInterval)

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		c.Stop()
		return server.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
	log.Println("Server shutdown complete.")
}
