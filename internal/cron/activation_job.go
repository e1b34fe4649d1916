package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	"github.com/jortega-dev/riverside-backend/pkg/logger"
	"github.com/jortega-dev/riverside-backend/pkg/metrics"
)

const activationBatchSize = 200

type startedReservationReader interface {
	ListStartedConfirmed(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
}

// ActivationJobParams configure the reservation activation sweep.
type ActivationJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Reader       startedReservationReader
	Reservations transitioner
	Metrics      *metrics.CronJobMetrics
	Interval     time.Duration
	RepoFactory  sweepRepoFactory
}

// NewActivationJob builds the sweep that moves confirmed reservations whose
// window has started into in_progress.
func NewActivationJob(params ActivationJobParams) (Job, error) {
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
	return &activationJob{
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

type activationJob struct {
	logg         *logger.Logger
	db           txRunner
	reader       startedReservationReader
	reservations transitioner
	metrics      *metrics.CronJobMetrics
	interval     time.Duration
	repoFactory  sweepRepoFactory
	now          func() time.Time
}

func (j *activationJob) Name() string { return "reservation-activation" }

func (j *activationJob) Interval() time.Duration { return j.interval }

func (j *activationJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	started, err := j.reader.ListStartedConfirmed(ctx, now, activationBatchSize)
	if err != nil {
		return fmt.Errorf("query started reservations: %w", err)
	}
	var errs []error
	count := 0
	for _, reservation := range started {
		if err := j.activate(ctx, reservation.ID); err != nil {
			errs = append(errs, fmt.Errorf("activate reservation %s: %w", reservation.ID, err))
			continue
		}
		count++
	}
	if j.metrics != nil {
		j.metrics.AddSwept(j.Name(), count)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count, "failed": len(errs)})
	j.logg.Info(logCtx, "reservation activation sweep complete")
	return multierr.Combine(errs...)
}

func (j *activationJob) activate(ctx context.Context, id uuid.UUID) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := j.repoFactory(tx).Get(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != enums.ReservationStatusConfirmed {
			return nil
		}
		return j.reservations.TransitionInTx(ctx, tx, current, enums.ReservationStatusInProgress, nil)
	})
}
