// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sudo-init-do/nearbuy/internal/db"
	"github.com/sudo-init-do/nearbuy/internal/marketplace"
)

// RatingRefresher recomputes every seller's rating from its reviews.
type RatingRefresher func(ctx context.Context) (int64, error)

// SellerRatings returns a RatingRefresher over q.
func SellerRatings(q db.Querier) RatingRefresher {
	return func(ctx context.Context) (int64, error) {
		return marketplace.RefreshAllSellerRatings(ctx, q)
	}
}

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		timeout: 5 * time.Minute,
	}
}

// AddRatingRefresh schedules refresh on spec.
func (s *Scheduler) AddRatingRefresh(spec string, refresh RatingRefresher) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		runRatingRefresh(ctx, refresh)
	})
	if err != nil {
		return fmt.Errorf("schedule rating refresh %q: %w", spec, err)
	}
	log.Printf("[jobs] rating refresh scheduled: %s", spec)
	return nil
}

func runRatingRefresh(ctx context.Context, refresh RatingRefresher) {
	start := time.Now()
	n, err := refresh(ctx)
	if err != nil {
		log.Printf("[jobs][ERROR] rating refresh failed: %v", err)
		return
	}
	log.Printf("[jobs] rating refresh updated %d sellers in %s", n, time.Since(start).Round(time.Millisecond))
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for running jobs or ctx, whichever is first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
