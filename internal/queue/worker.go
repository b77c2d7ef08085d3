package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/contentpilot/internal/service"
)

func (q *Queue) HandleNotifyTask(ctx context.Context, task *asynq.Task) error {
	var payload service.Notification
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding %s payload: %v: %w", TaskTypeNotifyPost, err, asynq.SkipRetry)
	}

	return q.n.Notify(ctx, payload)
}
