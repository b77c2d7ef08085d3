package queue

import (
	"github.com/maheshrc27/contentpilot/internal/service"
)

// Queue handles the background side channel of the publisher: notification
// delivery runs on the asynq worker instead of the publishing goroutine.
type Queue struct {
	n service.Notifier
}

func NewQueue(n service.Notifier) *Queue {
	return &Queue{n: n}
}

const TaskTypeNotifyPost = "notify:post_published"
