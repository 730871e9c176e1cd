package scheduler

import (
	"context"
	"elearning_backend/pkg/logger"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job 定时任务，每次执行有独立的超时
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger{}))),
	}
}

func (s *Scheduler) Register(job Job) error {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	_, err := s.cron.AddFunc(job.Spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		logger.Log.Info("Scheduled job started", zap.String("job", job.Name))
		if err := job.Run(ctx); err != nil {
			logger.Log.Error("Scheduled job failed", zap.String("job", job.Name), zap.Error(err))
			return
		}
		logger.Log.Info("Scheduled job finished",
			zap.String("job", job.Name),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
	if err != nil {
		return err
	}

	logger.Log.Info("Scheduled job registered", zap.String("job", job.Name), zap.String("spec", job.Spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Log.Warn("Scheduler stop timed out")
	}
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Log.Sugar().Infow(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
