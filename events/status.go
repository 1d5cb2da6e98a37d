package events

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StartStatusSweeper runs CompletePastEvents every interval until the
// returned scheduler is shut down.
func StartStatusSweeper(svc *Service, interval time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			n, err := svc.CompletePastEvents(ctx, time.Now().UTC())
			if err != nil {
				svc.log.Error("status sweep failed", zap.Error(err))
				return
			}
			if n > 0 {
				svc.log.Info("status sweep completed events", zap.Int64("count", n))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}

	s.Start()
	return s, nil
}
