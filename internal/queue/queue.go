package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/contentpilot/internal/service"
)

const notifyMaxRetry = 3

func NewNotifyTask(n service.Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyPost, payload, asynq.MaxRetry(notifyMaxRetry)), nil
}

func EnqueueNotification(ctx context.Context, asynqClient *asynq.Client, n service.Notification) error {
	task, err := NewNotifyTask(n)
	if err != nil {
		return err
	}

	info, err := asynqClient.EnqueueContext(ctx, task)
	if err != nil {
		return err
	}

	slog.Info("notification enqueued", "task_id", info.ID, "post_id", n.PostID)
	return nil
}

type notifier struct {
	client *asynq.Client
}

// NewNotifier returns a Notifier that hands notifications to the asynq worker.
func NewNotifier(client *asynq.Client) service.Notifier {
	return &notifier{client: client}
}

func (q *notifier) Notify(ctx context.Context, n service.Notification) error {
	return EnqueueNotification(ctx, q.client, n)
}
