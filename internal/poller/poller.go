// Package poller schedules and runs delayed status queries for undecided payments.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/paynet-bridge/internal/resilience"
)

// TypeStatusPoll is the asynq task type for one status round.
const TypeStatusPoll = "paynet:status_poll"

// Payload identifies the payment and the poll attempt a task was scheduled for.
type Payload struct {
	MerchantOrderID string `json:"merchantOrderId"`
	Attempt         int    `json:"attempt"`
}

// NewTask encodes a status poll task.
func NewTask(orderID string, attempt int) (*asynq.Task, error) {
	payload, err := json.Marshal(Payload{MerchantOrderID: orderID, Attempt: attempt})
	if err != nil {
		return nil, fmt.Errorf("poller: encode payload: %w", err)
	}
	return asynq.NewTask(TypeStatusPoll, payload), nil
}

// Enqueuer is the subset of *asynq.Client used for scheduling.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler enqueues polls with exponential spacing. Each (order, attempt) pair is
// enqueued at most once.
type Scheduler struct {
	Client      Enqueuer
	Queue       string
	Interval    time.Duration
	MaxInterval time.Duration
	Jitter      float64
	MaxRetry    int
	Logger      zerolog.Logger
}

// Delay returns how long to wait before poll attempt n.
func (s Scheduler) Delay(attempt int) time.Duration {
	return resilience.CappedBackoff(s.Interval, attempt, s.Jitter, s.MaxInterval)
}

// Schedule enqueues poll attempt for orderID.
func (s Scheduler) Schedule(ctx context.Context, orderID string, attempt int) error {
	task, err := NewTask(orderID, attempt)
	if err != nil {
		return err
	}
	queue := s.Queue
	if queue == "" {
		queue = "paynet"
	}
	delay := s.Delay(attempt)
	_, err = s.Client.EnqueueContext(ctx, task,
		asynq.Queue(queue),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(s.MaxRetry),
		asynq.TaskID(orderID+":"+strconv.Itoa(attempt)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("poller: enqueue %s: %w", orderID, err)
	}
	s.Logger.Debug().
		Str("merchant_order_id", orderID).
		Int("attempt", attempt).
		Dur("delay", delay).
		Msg("paynet_poll_scheduled")
	return nil
}

// Poller runs one status round for a payment.
type Poller interface {
	Poll(ctx context.Context, orderID string, attempt int) error
}

// Worker adapts a Poller to asynq.
type Worker struct {
	Poller Poller
	Logger zerolog.Logger
}

// Register mounts the status poll handler on mux.
func (w Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeStatusPoll, w.HandleStatusPoll)
}

// HandleStatusPoll decodes a task and runs the poll. Malformed payloads are not retried.
func (w Worker) HandleStatusPoll(ctx context.Context, t *asynq.Task) error {
	var p Payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("poller: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.MerchantOrderID == "" {
		return fmt.Errorf("poller: payload without merchant order id: %w", asynq.SkipRetry)
	}
	logger := w.Logger.With().Str("merchant_order_id", p.MerchantOrderID).Int("attempt", p.Attempt).Logger()
	if err := w.Poller.Poll(ctx, p.MerchantOrderID, p.Attempt); err != nil {
		logger.Warn().Err(err).Msg("paynet_poll_retry")
		return err
	}
	logger.Debug().Msg("paynet_poll_done")
	return nil
}
