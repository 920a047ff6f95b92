package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackutd/harp-sub001/internal/config"
	"github.com/hackutd/harp-sub001/internal/logger"
	"github.com/hackutd/harp-sub001/internal/store"
)

type fakeAssigner struct {
	calls   atomic.Int32
	perApp  atomic.Int32
	created int
	err     error
}

func (f *fakeAssigner) BatchAssign(_ context.Context, reviewsPerApp int) (*store.BatchAssignmentResult, error) {
	f.calls.Add(1)
	f.perApp.Store(int32(reviewsPerApp))
	if f.err != nil {
		return nil, f.err
	}
	return &store.BatchAssignmentResult{ReviewsCreated: f.created}, nil
}

type fixedPerApp int

func (f fixedPerApp) GetReviewsPerApplication(context.Context) (int, error) {
	return int(f), nil
}

func TestRunReviewAssignmentUsesSetting(t *testing.T) {
	assigner := &fakeAssigner{created: 4}
	created, err := RunReviewAssignment(context.Background(), assigner, fixedPerApp(2))
	require.NoError(t, err)
	assert.Equal(t, 4, created)
	assert.Equal(t, int32(2), assigner.perApp.Load())
}

func TestRunReviewAssignmentPropagatesError(t *testing.T) {
	_, err := RunReviewAssignment(context.Background(), &fakeAssigner{err: errors.New("db down")}, fixedPerApp(3))
	assert.EqualError(t, err, "db down")
}

func TestJobDisabledDoesNothing(t *testing.T) {
	assigner := &fakeAssigner{}
	StartReviewAssignJob(context.Background(), config.Config{}, assigner, fixedPerApp(3), logger.Discard(), nil)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, assigner.calls.Load())
}

func TestJobTicksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assigner := &fakeAssigner{created: 1}
	notified := make(chan int, 10)
	cfg := config.Config{
		ReviewAssignJobEnabled:  true,
		ReviewAssignJobInterval: 5 * time.Millisecond,
		ReviewAssignJobTimeout:  time.Second,
	}
	StartReviewAssignJob(ctx, cfg, assigner, fixedPerApp(3), logger.Discard(), func(created int) {
		notified <- created
	})

	select {
	case created := <-notified:
		assert.Equal(t, 1, created)
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
	cancel()
}
