package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackutd/harp-sub001/internal/config"
	"github.com/hackutd/harp-sub001/internal/store"
)

type ReviewAssigner interface {
	BatchAssign(ctx context.Context, reviewsPerApp int) (*store.BatchAssignmentResult, error)
}

type ReviewsPerAppSource interface {
	GetReviewsPerApplication(ctx context.Context) (int, error)
}

// RunReviewAssignment performs one batch assignment pass and returns the
// number of reviews created.
func RunReviewAssignment(ctx context.Context, reviews ReviewAssigner, settings ReviewsPerAppSource) (int, error) {
	perApp, err := settings.GetReviewsPerApplication(ctx)
	if err != nil {
		return 0, err
	}
	result, err := reviews.BatchAssign(ctx, perApp)
	if err != nil {
		return 0, err
	}
	return result.ReviewsCreated, nil
}

// StartReviewAssignJob periodically assigns submitted applications to
// reviewers. onAssigned runs after every tick that created reviews.
func StartReviewAssignJob(ctx context.Context, cfg config.Config, reviews ReviewAssigner, settings ReviewsPerAppSource, log *logrus.Entry, onAssigned func(created int)) {
	if !cfg.ReviewAssignJobEnabled {
		return
	}
	interval := cfg.ReviewAssignJobInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	timeout := cfg.ReviewAssignJobTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				created, err := RunReviewAssignment(tickCtx, reviews, settings)
				cancel()
				if err != nil {
					log.WithError(err).Error("review assignment job error")
					continue
				}
				if created > 0 {
					log.WithField("reviews_created", created).Info("review assignment job assigned reviews")
					if onAssigned != nil {
						onAssigned(created)
					}
				}
			}
		}
	}()
}
