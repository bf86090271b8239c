package records

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/gymrunner/internal/events"
	"github.com/2beens/gymrunner/internal/gymstats/workout"
	"github.com/2beens/gymrunner/internal/telemetry/metrics"
	"github.com/2beens/gymrunner/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=detector_mocks_test.go -package=records_test

type recordsRepo interface {
	Upsert(ctx context.Context, record PersonalRecord) error
	Get(ctx context.Context, movementID string) (*PersonalRecord, error)
	List(ctx context.Context) ([]PersonalRecord, error)
}

// Detector keeps the per-movement record in sync with completed weighted sets.
// It does not compare against the previous best: callers only feed it sets worth recording.
type Detector struct {
	repo           recordsRepo
	metricsManager *metrics.Manager
	writeTimeout   time.Duration
}

func NewDetector(repo recordsRepo, metricsManager *metrics.Manager, writeTimeout time.Duration) *Detector {
	return &Detector{
		repo:           repo,
		metricsManager: metricsManager,
		writeTimeout:   writeTimeout,
	}
}

func (d *Detector) UpdatePR(ctx context.Context, movementID string, weight float64, reps int, date time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "records.updatepr")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("movement_id", movementID))

	if err := d.repo.Upsert(ctx, PersonalRecord{
		MovementID: movementID,
		Weight:     weight,
		Reps:       reps,
		Date:       date,
	}); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}

	d.metricsManager.CounterPRUpdates.Inc()
	return nil
}

// Listen subscribes the detector to completed sets. Returns the unsubscribe func.
func (d *Detector) Listen(setCompleted *events.CallbackEvent[workout.SetCompleted]) func() {
	return setCompleted.Listen(d.handleSetCompleted)
}

func (d *Detector) handleSetCompleted(evt workout.SetCompleted) {
	if !evt.IsWeighted() || evt.MovementID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
	defer cancel()

	if err := d.UpdatePR(ctx, evt.MovementID, evt.Value.Weight, evt.Value.Reps, evt.CompletedAt); err != nil {
		log.Errorf("update personal record for movement [%s]: %s", evt.MovementID, err)
		return
	}
	log.Tracef("personal record for [%s] set to %.2f x %d", evt.MovementID, evt.Value.Weight, evt.Value.Reps)
}

func (d *Detector) Get(ctx context.Context, movementID string) (*PersonalRecord, error) {
	return d.repo.Get(ctx, movementID)
}

// ListNew returns the records set on or after windowStart.
func (d *Detector) ListNew(ctx context.Context, windowStart time.Time) ([]PersonalRecord, error) {
	all, err := d.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	var fresh []PersonalRecord
	for _, r := range all {
		if IsNew(r, windowStart) {
			fresh = append(fresh, r)
		}
	}
	return fresh, nil
}
