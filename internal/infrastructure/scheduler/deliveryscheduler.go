package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	subscriptionUsecases "github.com/milkrun-inc/milkrun/internal/application/subscription/usecases"
)

// expiringThresholdDays is how far ahead the nightly status job looks when
// flipping subscriptions to expiring.
const expiringThresholdDays = 3

// RegisterDeliverySweepJob registers the end-of-day auto-cancellation sweep.
// The sweep runs on an interval rather than once at the boundary so that a
// restarted instance still catches days left unresolved while it was down.
func (m *SchedulerManager) RegisterDeliverySweepJob(
	sweepUC *subscriptionUsecases.SweepUnresolvedDeliveriesUseCase,
	intervalHours int,
) error {
	if intervalHours <= 0 {
		intervalHours = 1
	}
	interval := time.Duration(intervalHours) * time.Hour

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			m.runDeliverySweep(ctx, sweepUC)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("delivery", "sweep"),
		gocron.WithName("delivery-sweep"),
	)
	if err != nil {
		return fmt.Errorf("failed to register delivery sweep job: %w", err)
	}

	m.logger.Infow("registered delivery sweep job", "interval", interval)
	return nil
}

func (m *SchedulerManager) runDeliverySweep(ctx context.Context, sweepUC *subscriptionUsecases.SweepUnresolvedDeliveriesUseCase) {
	m.logger.Debugw("delivery sweep started")
	startTime := time.Now()

	result, err := sweepUC.Execute(ctx)
	if err != nil {
		m.logger.Errorw("delivery sweep failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if result.SubscriptionsSwept > 0 {
		m.logger.Infow("delivery sweep completed",
			"subscriptions_swept", result.SubscriptionsSwept,
			"concessions_granted", result.ConcessionsGranted,
			"duration", time.Since(startTime),
		)
	} else {
		m.logger.Debugw("delivery sweep found nothing to do",
			"duration", time.Since(startTime),
		)
	}
}

// RegisterExpiryJob registers the nightly status recompute that marks
// subscriptions expiring or expired. It runs shortly after the business-day
// rollover.
func (m *SchedulerManager) RegisterExpiryJob(
	expireUC *subscriptionUsecases.ExpireSubscriptionsUseCase,
) error {
	_, err := m.scheduler.NewJob(
		gocron.CronJob("10 0 * * *", false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			m.runExpiry(ctx, expireUC)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("subscription", "expiry"),
		gocron.WithName("subscription-expiry"),
	)
	if err != nil {
		return fmt.Errorf("failed to register subscription expiry job: %w", err)
	}

	m.logger.Infow("registered subscription expiry job", "cron", "10 0 * * *")
	return nil
}

func (m *SchedulerManager) runExpiry(ctx context.Context, expireUC *subscriptionUsecases.ExpireSubscriptionsUseCase) {
	m.logger.Debugw("subscription expiry task started")
	startTime := time.Now()

	count, err := expireUC.Execute(ctx, expiringThresholdDays)
	if err != nil {
		m.logger.Errorw("subscription expiry task failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if count > 0 {
		m.logger.Infow("subscription statuses recomputed",
			"count", count,
			"duration", time.Since(startTime),
		)
	}
}
