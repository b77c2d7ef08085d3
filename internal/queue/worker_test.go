package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/contentpilot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	got []service.Notification
	err error
}

func (r *recordingNotifier) Notify(ctx context.Context, n service.Notification) error {
	r.got = append(r.got, n)
	return r.err
}

func TestHandleNotifyTask(t *testing.T) {
	rec := &recordingNotifier{}
	q := NewQueue(rec)

	n := service.Notification{Client: "acme", PostID: "p1", Platforms: []string{"instagram", "facebook"}, Message: "Post p1 published"}
	task, err := NewNotifyTask(n)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeNotifyPost, task.Type())

	require.NoError(t, q.HandleNotifyTask(context.Background(), task))
	require.Len(t, rec.got, 1)
	assert.Equal(t, n, rec.got[0])
}

func TestHandleNotifyTaskPropagatesDeliveryErrors(t *testing.T) {
	q := NewQueue(&recordingNotifier{err: errors.New("smtp down")})
	task, err := NewNotifyTask(service.Notification{PostID: "p1"})
	require.NoError(t, err)

	assert.Error(t, q.HandleNotifyTask(context.Background(), task))
}

func TestHandleNotifyTaskBadPayload(t *testing.T) {
	q := NewQueue(&recordingNotifier{})
	err := q.HandleNotifyTask(context.Background(), asynq.NewTask(TaskTypeNotifyPost, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
