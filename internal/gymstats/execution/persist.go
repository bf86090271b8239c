package execution

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/2beens/gymrunner/internal/gymstats/progress"
	"github.com/2beens/gymrunner/internal/gymstats/sessions"
	"github.com/2beens/gymrunner/internal/gymstats/workout"
	"github.com/2beens/gymrunner/internal/logging"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// persistCompleted writes freshly logged sets: completion flags, progress records and the session.
// All three writes are attempted even if one fails. Every completed token of the section is marked
// again, so a mark lost to an earlier failure is repaired by the next logged set.
func (e *Engine) persistCompleted(ctx context.Context, at time.Time, records ...progress.Record) (err error) {
	defer e.observePersist(time.Now(), &err)

	for _, rec := range records {
		e.progress[rec.Field()] = rec
	}

	tokens := make([]string, 0, len(e.completed))
	for key, done := range e.completed {
		if done {
			tokens = append(tokens, key.Token())
		}
	}
	slices.Sort(tokens)

	if markErr := e.deps.Completion.MarkComplete(ctx, e.sectionKey, tokens...); markErr != nil {
		err = multierr.Append(err, fmt.Errorf("mark complete: %w", markErr))
	}
	if putErr := e.deps.Progress.Put(ctx, e.sectionKey, records...); putErr != nil {
		err = multierr.Append(err, fmt.Errorf("put progress: %w", putErr))
	}
	err = multierr.Append(err, e.saveSessionLocked(ctx))

	log.Tracef("engine [%s]: persisted %d sets at %s", e.sectionKey, len(records), at.Format(time.RFC3339))
	return err
}

func (e *Engine) observePersist(start time.Time, err *error) {
	e.deps.Metrics.HistogramPersistDuration.Observe(time.Since(start).Seconds())
	if *err != nil {
		e.deps.Metrics.CounterPersistErrors.Inc()
		log.WithFields(log.Fields{
			logging.FieldWorkoutKey: e.workoutKey,
			logging.FieldSection:    e.section.String(),
		}).WithError(*err).Error("engine persist failed")
	}
}

// saveSessionLocked writes the section's records into the workout session.
func (e *Engine) saveSessionLocked(ctx context.Context) error {
	session, err := e.deps.Sessions.SaveSection(ctx, sessions.SectionDraft{
		WorkoutKey: e.workoutKey,
		TemplateID: e.templateID,
		Section:    e.section,
		Date:       e.date,
		Records:    e.sessionRecords(),
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	e.session = session
	return nil
}

// sessionRecords lists every set that is either logged or carries a value of its own.
func (e *Engine) sessionRecords() []sessions.SetRecord {
	res := e.resolver()

	var records []sessions.SetRecord
	for _, item := range e.items {
		for r := range item.Sets {
			key := workout.NewSetKey(item.ID, r)
			value, src := res.ResolveWithSource(item, r)
			completed := e.completed[key]
			if !completed && src == SourceTemplate {
				continue
			}
			records = append(records, sessions.SetRecord{
				Section:     e.section,
				ExerciseID:  item.ID,
				SetIndex:    r,
				Weight:      value.Weight,
				Reps:        value.Reps,
				IsCompleted: completed,
			})
		}
	}
	return records
}
