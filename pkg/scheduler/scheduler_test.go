package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegister_RejectsBadSpec(t *testing.T) {
	s := New()
	err := s.Register(Job{Name: "bad", Spec: "not a cron spec", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestScheduler_RunsJob(t *testing.T) {
	s := New()
	ran := make(chan struct{}, 1)
	err := s.Register(Job{
		Name: "tick",
		Spec: "@every 1s",
		Run: func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			if hasDeadline {
				select {
				case ran <- struct{}{}:
				default:
				}
			}
			return nil
		},
	})
	assert.NoError(t, err)

	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(ctx)
	}()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}
