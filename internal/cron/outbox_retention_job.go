package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/carbidz-backend/pkg/logger"
)

const (
	outboxRetentionDays = 30
	outboxMinAttempts   = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxPruner
	// Retention is in days; zero means 30.
	Retention int
	// MinAttempts marks unpublished rows as abandoned; zero means 10.
	MinAttempts int
}

// outboxRetentionJob keeps the outbox table bounded. Published rows go once
// they age past the window; unpublished rows go only after exhausting their
// attempts, since the DLQ already holds a copy.
type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxPruner
	window      time.Duration
	minAttempts int
	now         func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	days, attempts := params.Retention, params.MinAttempts
	if days <= 0 {
		days = outboxRetentionDays
	}
	if attempts <= 0 {
		attempts = outboxMinAttempts
	}
	return &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		window:      time.Duration(days) * 24 * time.Hour,
		minAttempts: attempts,
		now:         time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)

	var pruned int64
	if err := j.db.WithTx(ctx, func(tx *gorm.DB) (err error) {
		pruned, err = j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.minAttempts)
		return err
	}); err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}

	if pruned > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"cutoff":       cutoff,
			"rows_deleted": pruned,
		}), "outbox rows pruned")
	}
	return nil
}
