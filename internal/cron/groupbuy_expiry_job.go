package cron

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/streetconnect/streetconnect-backend/internal/groupbuys"
	pkgerrors "github.com/streetconnect/streetconnect-backend/pkg/errors"
	"github.com/streetconnect/streetconnect-backend/pkg/logger"
	"github.com/streetconnect/streetconnect-backend/pkg/metrics"
)

const (
	defaultSweepBatchSize  = 500
	defaultSweepMaxRetries = 5
)

// GroupBuyExpiryJobParams configure the deadline sweep job.
type GroupBuyExpiryJobParams struct {
	Logger     *logger.Logger
	Store      *groupbuys.Store
	Metrics    *metrics.JobMetrics
	BatchSize  int
	MaxRetries int
}

// NewGroupBuyExpiryJob builds the job that resolves open group buys whose
// deadline has passed: target met confirms, otherwise the group buy expires.
func NewGroupBuyExpiryJob(params GroupBuyExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("group buy store required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultSweepMaxRetries
	}
	return &groupBuyExpiryJob{
		logg:       params.Logger,
		store:      params.Store,
		metrics:    params.Metrics,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		now:        time.Now,
	}, nil
}

type groupBuyExpiryJob struct {
	logg       *logger.Logger
	store      *groupbuys.Store
	metrics    *metrics.JobMetrics
	batchSize  int
	maxRetries int
	now        func() time.Time
}

func (j *groupBuyExpiryJob) Name() string { return "groupbuy-expiry" }

func (j *groupBuyExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	overdue, err := j.store.ListOpenPastDeadline(ctx, now, j.batchSize)
	if err != nil {
		return fmt.Errorf("query overdue group buys: %w", err)
	}

	var errs []error
	swept := 0
	for _, gb := range overdue {
		resolved, err := j.resolve(ctx, gb.ID, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve group buy %s: %w", gb.ID, err))
			continue
		}
		if resolved {
			swept++
		}
	}
	j.metrics.AddSwept(swept)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(overdue),
		"swept":      swept,
	})
	j.logg.Info(logCtx, "deadline sweep complete")
	return multierr.Combine(errs...)
}

// resolve applies the deadline transition to a single group buy. Each attempt
// reloads fresh state so a concurrent join that lands first (possibly
// confirming the group buy) settles the race through the version check.
func (j *groupBuyExpiryJob) resolve(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	for attempt := 0; attempt <= j.maxRetries; attempt++ {
		gb, err := j.store.Get(ctx, id)
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
				return false, nil
			}
			return false, err
		}

		_, err = j.store.Update(ctx, id, gb.Version, groupbuys.DeadlineSweepMutator(now))
		if err == nil {
			return true, nil
		}
		if stderrors.Is(err, groupbuys.ErrNoTransition) {
			return false, nil
		}
		if pkgerrors.Is(err, pkgerrors.CodeConflict) {
			continue
		}
		return false, err
	}
	return false, pkgerrors.New(pkgerrors.CodeConflict, "sweep retries exhausted")
}
