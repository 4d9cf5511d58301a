package poller_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paynet-bridge/internal/poller"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "x"}, nil
}

func optionValue(opts []asynq.Option, kind asynq.OptionType) interface{} {
	for _, opt := range opts {
		if opt.Type() == kind {
			return opt.Value()
		}
	}
	return nil
}

func TestScheduleEnqueuesDelayedTask(t *testing.T) {
	enq := &fakeEnqueuer{}
	s := poller.Scheduler{Client: enq, Queue: "paynet", Interval: 2 * time.Second, MaxInterval: 10 * time.Second, MaxRetry: 3}

	require.NoError(t, s.Schedule(context.Background(), "ORD-1", 3))
	require.Len(t, enq.tasks, 1)
	require.Equal(t, poller.TypeStatusPoll, enq.tasks[0].Type())
	require.JSONEq(t, `{"merchantOrderId":"ORD-1","attempt":3}`, string(enq.tasks[0].Payload()))

	opts := enq.opts[0]
	require.Equal(t, 8*time.Second, optionValue(opts, asynq.ProcessInOpt))
	require.Equal(t, "ORD-1:3", optionValue(opts, asynq.TaskIDOpt))
	require.Equal(t, "paynet", optionValue(opts, asynq.QueueOpt))
	require.Equal(t, 3, optionValue(opts, asynq.MaxRetryOpt))
}

func TestDelayIsCapped(t *testing.T) {
	s := poller.Scheduler{Interval: 5 * time.Second, MaxInterval: time.Minute}
	require.Equal(t, 5*time.Second, s.Delay(1))
	require.Equal(t, time.Minute, s.Delay(12))
}

func TestScheduleTreatsConflictAsDone(t *testing.T) {
	s := poller.Scheduler{Client: &fakeEnqueuer{err: asynq.ErrTaskIDConflict}, Interval: time.Second}
	require.NoError(t, s.Schedule(context.Background(), "ORD-1", 1))

	s.Client = &fakeEnqueuer{err: errors.New("redis down")}
	require.Error(t, s.Schedule(context.Background(), "ORD-1", 1))
}

type pollFunc func(ctx context.Context, orderID string, attempt int) error

func (f pollFunc) Poll(ctx context.Context, orderID string, attempt int) error {
	return f(ctx, orderID, attempt)
}

func TestHandleStatusPoll(t *testing.T) {
	var gotOrder string
	var gotAttempt int
	w := poller.Worker{Logger: zerolog.Nop(), Poller: pollFunc(func(_ context.Context, orderID string, attempt int) error {
		gotOrder, gotAttempt = orderID, attempt
		return nil
	})}

	task, err := poller.NewTask("ORD-9", 4)
	require.NoError(t, err)
	require.NoError(t, w.HandleStatusPoll(context.Background(), task))
	require.Equal(t, "ORD-9", gotOrder)
	require.Equal(t, 4, gotAttempt)
}

func TestHandleStatusPollSkipsRetryOnBadPayload(t *testing.T) {
	w := poller.Worker{Poller: pollFunc(func(context.Context, string, int) error { return nil })}

	err := w.HandleStatusPoll(context.Background(), asynq.NewTask(poller.TypeStatusPoll, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = w.HandleStatusPoll(context.Background(), asynq.NewTask(poller.TypeStatusPoll, []byte(`{"attempt":1}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleStatusPollPropagatesErrors(t *testing.T) {
	boom := errors.New("lock busy")
	w := poller.Worker{Poller: pollFunc(func(context.Context, string, int) error { return boom })}
	task, err := poller.NewTask("ORD-9", 1)
	require.NoError(t, err)
	require.ErrorIs(t, w.HandleStatusPoll(context.Background(), task), boom)
}
