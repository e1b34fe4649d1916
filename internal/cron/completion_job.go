package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/internal/reservations"
	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	"github.com/jortega-dev/riverside-backend/pkg/logger"
	"github.com/jortega-dev/riverside-backend/pkg/metrics"
)

const completionBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type endedReservationReader interface {
	ListEndedHoldingStock(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
}

type transitioner interface {
	TransitionInTx(ctx context.Context, tx *gorm.DB, reservation *models.Reservation, target enums.ReservationStatus, actorID *uuid.UUID) error
}

type sweepRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
}

type sweepRepoFactory func(tx *gorm.DB) sweepRepo

func defaultSweepRepo(tx *gorm.DB) sweepRepo {
	return reservations.NewRepository(tx)
}

// CompletionJobParams configure the reservation completion sweep.
type CompletionJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Reader       endedReservationReader
	Reservations transitioner
	Metrics      *metrics.CronJobMetrics
	Interval     time.Duration
	RepoFactory  sweepRepoFactory
}

// NewCompletionJob builds the sweep that completes reservations whose stay
// or slot has ended while they were still holding stock.
func NewCompletionJob(params CompletionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("reservation reader required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservations service required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultSweepRepo
	}
	return &completionJob{
		logg:         params.Logger,
		db:           params.DB,
		reader:       params.Reader,
		reservations: params.Reservations,
		metrics:      params.Metrics,
		interval:     params.Interval,
		repoFactory:  repoFactory,
		now:          time.Now,
	}, nil
}

type completionJob struct {
	logg         *logger.Logger
	db           txRunner
	reader       endedReservationReader
	reservations transitioner
	metrics      *metrics.CronJobMetrics
	interval     time.Duration
	repoFactory  sweepRepoFactory
	now          func() time.Time
}

func (j *completionJob) Name() string { return "reservation-completion" }

func (j *completionJob) Interval() time.Duration { return j.interval }

// Run completes every ended reservation in its own transaction. One bad row
// is collected into the combined error and does not block the rest of the
// batch.
func (j *completionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	ended, err := j.reader.ListEndedHoldingStock(ctx, now, completionBatchSize)
	if err != nil {
		return fmt.Errorf("query ended reservations: %w", err)
	}
	var errs []error
	count := 0
	for _, reservation := range ended {
		if err := j.complete(ctx, reservation.ID); err != nil {
			errs = append(errs, fmt.Errorf("complete reservation %s: %w", reservation.ID, err))
			continue
		}
		count++
	}
	if j.metrics != nil {
		j.metrics.AddSwept(j.Name(), count)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count, "failed": len(errs)})
	j.logg.Info(logCtx, "reservation completion sweep complete")
	return multierr.Combine(errs...)
}

func (j *completionJob) complete(ctx context.Context, id uuid.UUID) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := j.repoFactory(tx).Get(ctx, id)
		if err != nil {
			return err
		}
		// A guest or an earlier run may have moved the row already.
		if current.Status.IsTerminal() {
			return nil
		}
		if current.Status == enums.ReservationStatusConfirmed {
			if err := j.reservations.TransitionInTx(ctx, tx, current, enums.ReservationStatusInProgress, nil); err != nil {
				return err
			}
		}
		if current.Status != enums.ReservationStatusInProgress {
			return nil
		}
		return j.reservations.TransitionInTx(ctx, tx, current, enums.ReservationStatusCompleted, nil)
	})
}
