package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	config "github.com/maheshrc27/contentpilot/configs"
)

type Notification struct {
	Client    string   `json:"client"`
	PostID    string   `json:"post_id"`
	Platforms []string `json:"platforms"`
	Message   string   `json:"message"`
}

// Notifier is a best-effort side channel. Its errors are logged by callers
// and never change a publish outcome.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type notifyService struct {
	smtp       config.SMTP
	webhookURL string
	client     *http.Client
	sendMail   sendMailFunc
}

// NewNotifyService always logs, then mails and posts to the webhook when
// those are configured.
func NewNotifyService(smtpCfg config.SMTP, webhookURL string) Notifier {
	return &notifyService{
		smtp:       smtpCfg,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		sendMail:   smtp.SendMail,
	}
}

func (s *notifyService) Notify(ctx context.Context, n Notification) error {
	slog.Info("post notification", "client", n.Client, "post_id", n.PostID, "platforms", n.Platforms, "message", n.Message)

	var errs []error
	if s.smtp.Host != "" && s.smtp.To != "" {
		if err := s.mail(n); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}
	if s.webhookURL != "" {
		if err := s.webhook(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("webhook: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *notifyService) mail(n Notification) error {
	from := s.smtp.User
	if from == "" {
		from = "contentpilot@localhost"
	}
	to := strings.Split(s.smtp.To, ",")
	for i := range to {
		to[i] = strings.TrimSpace(to[i])
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: [%s] post %s\r\n", n.Client, n.PostID)
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(n.Message)
	msg.WriteString("\r\n")

	var auth smtp.Auth
	if s.smtp.User != "" {
		auth = smtp.PlainAuth("", s.smtp.User, s.smtp.Password, s.smtp.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.smtp.Host, s.smtp.Port)
	return s.sendMail(addr, auth, from, to, msg.Bytes())
}

func (s *notifyService) webhook(ctx context.Context, n Notification) error {
	body, err := json.Marshal(map[string]any{
		"text":      n.Message,
		"client":    n.Client,
		"post_id":   n.PostID,
		"platforms": n.Platforms,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
