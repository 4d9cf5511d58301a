package app

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/paynet-bridge/internal/obs"
)

// AsynqLogger routes asynq's internal logging through zerolog.
type AsynqLogger struct {
	Logger zerolog.Logger
}

func (l AsynqLogger) Debug(args ...interface{}) { l.Logger.Debug().Msg(fmt.Sprint(args...)) }
func (l AsynqLogger) Info(args ...interface{})  { l.Logger.Info().Msg(fmt.Sprint(args...)) }
func (l AsynqLogger) Warn(args ...interface{})  { l.Logger.Warn().Msg(fmt.Sprint(args...)) }
func (l AsynqLogger) Error(args ...interface{}) { l.Logger.Error().Msg(fmt.Sprint(args...)) }
func (l AsynqLogger) Fatal(args ...interface{}) { l.Logger.Fatal().Msg(fmt.Sprint(args...)) }

// NewTaskServer builds the asynq server consuming the status poll queue.
func (d *Dependencies) NewTaskServer() *asynq.Server {
	logger := d.Logger
	return asynq.NewServer(d.RedisConn, asynq.Config{
		Concurrency: d.Config.WorkerConcurrency,
		Queues:      map[string]int{d.Config.PollQueue: 1},
		Logger:      AsynqLogger{Logger: logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			obs.IncCounter(obs.StatusPollTotal, "task_error")
			logger.Error().
				Err(err).
				Str("task_type", task.Type()).
				Int("retried", retried).
				Int("max_retry", maxRetry).
				Msg("asynq_task_failed")
		}),
	})
}
