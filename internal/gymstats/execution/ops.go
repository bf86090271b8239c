package execution

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/gymrunner/internal/gymstats/progress"
	"github.com/2beens/gymrunner/internal/gymstats/workout"
	"github.com/2beens/gymrunner/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

// Reset forgets everything logged in this section and goes back to the template, swaps included.
// If the workout was marked completed, that mark is reverted. Resetting twice is harmless.
func (e *Engine) Reset(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "execution.engine.reset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("section_key", e.sectionKey))

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	// countdowns go first, so no callback can act on the state being cleared
	e.timers.Cancel()

	e.items = applySwaps(e.template.ItemsFor(e.section), nil)
	e.groups = workout.BuildGroups(e.items)
	e.completed = make(map[workout.SetKey]bool)
	e.rounds = make(map[string]int, len(e.groups))
	e.completedAt = make(map[string]time.Time)
	e.edits = make(map[workout.SetKey]workout.SetValue)
	e.progress = make(map[string]progress.Record)
	e.resume()

	wasCompleted, checkErr := e.deps.Schedule.IsCompleted(ctx, e.workoutKey)
	if checkErr != nil {
		err = multierr.Append(err, fmt.Errorf("is workout completed: %w", checkErr))
	}

	if resetErr := e.deps.Completion.Reset(ctx, e.sectionKey); resetErr != nil {
		err = multierr.Append(err, fmt.Errorf("reset completion: %w", resetErr))
	}
	if regErr := e.deps.Completion.RegisterSection(ctx, e.sectionKey, len(workout.SectionTokens(e.items))); regErr != nil {
		err = multierr.Append(err, fmt.Errorf("register section: %w", regErr))
	}
	if clearErr := e.deps.Progress.Clear(ctx, e.sectionKey); clearErr != nil {
		err = multierr.Append(err, fmt.Errorf("clear progress: %w", clearErr))
	}
	if clearErr := e.deps.Sessions.ClearSection(ctx, e.workoutKey, e.section); clearErr != nil {
		err = multierr.Append(err, fmt.Errorf("clear session section: %w", clearErr))
	}
	session, findErr := e.deps.Sessions.Find(ctx, e.workoutKey)
	if findErr != nil {
		session = nil
	}
	e.session = session

	if wasCompleted {
		if schedErr := e.deps.Schedule.SetCompleted(ctx, e.workoutKey, false, e.deps.Now()); schedErr != nil {
			err = multierr.Append(err, fmt.Errorf("revert workout completed: %w", schedErr))
		}
	}

	e.deps.Metrics.CounterSectionResets.WithLabelValues(e.section.String()).Inc()
	if err != nil {
		e.deps.Metrics.CounterPersistErrors.Inc()
	}
	log.Debugf("engine [%s]: section reset", e.sectionKey)
	return err
}

// CompleteAll logs every remaining set of the section at once, with the values they show.
func (e *Engine) CompleteAll(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "execution.engine.completeall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("section_key", e.sectionKey))

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	e.timers.Cancel()

	now := e.deps.Now()
	res := e.resolver()

	type logged struct {
		item  workout.ExerciseItem
		round int
		value workout.SetValue
	}
	var newlyLogged []logged
	var records []progress.Record
	for _, g := range e.groups {
		for _, ex := range g.Exercises {
			for r := range ex.Sets {
				key := workout.NewSetKey(ex.ID, r)
				if e.completed[key] {
					continue
				}
				value := res.Resolve(ex, r)
				newlyLogged = append(newlyLogged, logged{item: ex, round: r, value: value})
				records = append(records, progressRecord(ex, r, value, true, now))
			}
		}
	}
	if len(newlyLogged) == 0 && e.status == StatusSectionComplete {
		return nil
	}
	for _, l := range newlyLogged {
		e.completed[workout.NewSetKey(l.item.ID, l.round)] = true
	}

	for _, g := range e.groups {
		if !workout.IsGroupComplete(g, e.rounds[g.ID]) {
			e.deps.Metrics.CounterGroupsCompleted.WithLabelValues(e.section.String()).Inc()
		}
		e.rounds[g.ID] = g.TotalRounds
		if _, ok := e.completedAt[g.ID]; !ok {
			e.completedAt[g.ID] = now
		}
	}
	e.deps.Metrics.CounterSetsCompleted.WithLabelValues(e.section.String()).Add(float64(len(newlyLogged)))

	if len(records) > 0 {
		err = e.persistCompleted(ctx, now, records...)
	}
	for _, l := range newlyLogged {
		e.publish(l.item, l.round, l.value, now)
	}

	return multierr.Append(err, e.finishSectionLocked(ctx))
}

// EditValue applies typed-in text to a set. Empty or unparsable input, negative numbers,
// NaN and infinities leave the corresponding value as it is.
func (e *Engine) EditValue(ctx context.Context, key workout.SetKey, weightText, repsText string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	item, err := e.itemForKey(key)
	if err != nil {
		return err
	}

	current := e.resolver().Resolve(item, key.Round)
	next := current
	if w, ok := parseWeight(weightText); ok {
		next.Weight = w
	}
	if r, ok := parseReps(repsText); ok {
		next.Reps = r
	}
	if next == current {
		return nil
	}
	return e.setValueLocked(ctx, item, key.Round, next)
}

// SetValue stores a value for one set, logged or not. Invalid values are ignored.
func (e *Engine) SetValue(ctx context.Context, key workout.SetKey, value workout.SetValue) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	item, err := e.itemForKey(key)
	if err != nil {
		return err
	}
	if !validWeight(value.Weight) || value.Reps < 0 {
		return nil
	}
	return e.setValueLocked(ctx, item, key.Round, value)
}

func (e *Engine) setValueLocked(ctx context.Context, item workout.ExerciseItem, round int, value workout.SetValue) (err error) {
	defer e.observePersist(time.Now(), &err)

	key := workout.NewSetKey(item.ID, round)
	e.edits[key] = value
	rec := progressRecord(item, round, value, e.completed[key], e.deps.Now())
	e.progress[rec.Field()] = rec

	if putErr := e.deps.Progress.Put(ctx, e.sectionKey, rec); putErr != nil {
		err = multierr.Append(err, fmt.Errorf("put progress: %w", putErr))
	}
	return multierr.Append(err, e.saveSessionLocked(ctx))
}

func (e *Engine) itemForKey(key workout.SetKey) (workout.ExerciseItem, error) {
	i, ok := e.itemByID(key.ExerciseItemID)
	if !ok || !e.items[i].HasRound(key.Round) {
		return workout.ExerciseItem{}, fmt.Errorf("%w: %s", ErrUnknownExercise, key)
	}
	return e.items[i], nil
}

// SwapExercise replaces an exercise of the section with another one, keeping its template slot,
// cycle and position. Logged sets move over with their values, unlogged edits are dropped.
func (e *Engine) SwapExercise(ctx context.Context, oldItemID string, newItem workout.ExerciseItem) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "execution.engine.swap")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("old_item", oldItemID))
	span.SetAttributes(attribute.String("new_item", newItem.ID))

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	idx, ok := e.itemByID(oldItemID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExercise, oldItemID)
	}
	if newItem.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	if newItem.ID == oldItemID {
		return nil
	}
	if _, taken := e.itemByID(newItem.ID); taken {
		return fmt.Errorf("%w: %s already in section", ErrInvalidItem, newItem.ID)
	}

	old := e.items[idx]
	newItem.TemplateExerciseID = old.StableID()
	newItem.CycleID = old.CycleID
	newItem.CycleOrder = old.CycleOrder
	if len(newItem.Sets) == 0 {
		newItem.Sets = old.Sets
	}
	if !newItem.Mode.IsValid() {
		newItem.Mode = old.Mode
	}
	if newItem.Rest == nil {
		newItem.Rest = old.Rest
	}

	// a running exercise countdown belongs to the old exercise
	if active, _, ok := e.activeItem(); ok && active.ID == old.ID && e.phase == PhaseExercise {
		e.timers.Cancel()
		e.status = StatusGroupActive
		e.phase = PhaseNone
	}

	// values of logged sets are taken before any map is touched
	res := e.resolver()
	now := e.deps.Now()
	var oldTokens, newTokens []string
	var records []progress.Record
	for r := range old.Sets {
		oldKey := workout.NewSetKey(old.ID, r)
		if !e.completed[oldKey] {
			continue
		}
		delete(e.completed, oldKey)
		oldTokens = append(oldTokens, oldKey.Token())
		if !newItem.HasRound(r) {
			continue
		}
		value := res.Resolve(old, r)
		newKey := workout.NewSetKey(newItem.ID, r)
		e.completed[newKey] = true
		newTokens = append(newTokens, newKey.Token())
		records = append(records, progressRecord(newItem, r, value, true, now))
	}
	for key := range e.edits {
		if key.ExerciseItemID == old.ID {
			delete(e.edits, key)
		}
	}
	for _, rec := range records {
		e.progress[rec.Field()] = rec
	}

	if old.CycleID == "" {
		if done, ok := e.rounds[old.ID]; ok {
			delete(e.rounds, old.ID)
			e.rounds[newItem.ID] = done
		}
		if at, ok := e.completedAt[old.ID]; ok {
			delete(e.completedAt, old.ID)
			e.completedAt[newItem.ID] = at
		}
	}

	e.items[idx] = newItem
	e.groups = workout.BuildGroups(e.items)
	for _, g := range e.groups {
		done := workout.CompletedRounds(g, e.completed)
		if done > e.rounds[g.ID] {
			e.rounds[g.ID] = done
		}
	}

	defer e.observePersist(time.Now(), &err)
	if unmarkErr := e.deps.Completion.Unmark(ctx, e.sectionKey, oldTokens...); unmarkErr != nil {
		err = multierr.Append(err, fmt.Errorf("unmark old sets: %w", unmarkErr))
	}
	if markErr := e.deps.Completion.MarkComplete(ctx, e.sectionKey, newTokens...); markErr != nil {
		err = multierr.Append(err, fmt.Errorf("mark new sets: %w", markErr))
	}
	if regErr := e.deps.Completion.RegisterSection(ctx, e.sectionKey, len(workout.SectionTokens(e.items))); regErr != nil {
		err = multierr.Append(err, fmt.Errorf("register section: %w", regErr))
	}
	if len(records) > 0 {
		if putErr := e.deps.Progress.Put(ctx, e.sectionKey, records...); putErr != nil {
			err = multierr.Append(err, fmt.Errorf("put progress: %w", putErr))
		}
	}
	if swapErr := e.deps.Progress.PutSwap(ctx, e.sectionKey, newItem); swapErr != nil {
		err = multierr.Append(err, fmt.Errorf("put swap: %w", swapErr))
	}
	err = multierr.Append(err, e.saveSessionLocked(ctx))

	log.Debugf("engine [%s]: swapped [%s] -> [%s], %d logged sets moved", e.sectionKey, old.ID, newItem.ID, len(newTokens))
	return err
}

func parseWeight(text string) (float64, bool) {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", "."))
	if text == "" {
		return 0, false
	}
	w, err := strconv.ParseFloat(text, 64)
	if err != nil || !validWeight(w) {
		return 0, false
	}
	return w, true
}

func parseReps(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	r, err := strconv.Atoi(text)
	if err != nil || r < 0 {
		return 0, false
	}
	return r, true
}

func validWeight(w float64) bool {
	return !math.IsNaN(w) && !math.IsInf(w, 0) && w >= 0
}
