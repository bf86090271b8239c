package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/gymrunner/internal/events"
	"github.com/2beens/gymrunner/internal/gymstats/completion"
	"github.com/2beens/gymrunner/internal/gymstats/progress"
	"github.com/2beens/gymrunner/internal/gymstats/sessions"
	"github.com/2beens/gymrunner/internal/gymstats/units"
	"github.com/2beens/gymrunner/internal/gymstats/workout"
	"github.com/2beens/gymrunner/internal/telemetry/metrics"
	"github.com/2beens/gymrunner/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

var (
	ErrSelectionLocked = errors.New("a set was already logged in the active group")
	ErrUnknownGroup    = errors.New("unknown exercise group")
	ErrUnknownExercise = errors.New("unknown exercise item")
	ErrGroupCompleted  = errors.New("exercise group already completed")
	ErrInvalidSection  = errors.New("invalid workout section")
	ErrInvalidItem     = errors.New("invalid exercise item")
	ErrEngineClosed    = errors.New("workout engine closed")
)

type templateProvider interface {
	GetTemplate(ctx context.Context, id string) (*workout.Template, error)
}

type movementLibrary interface {
	Name(ctx context.Context, movementID string) string
}

type sessionStore interface {
	Find(ctx context.Context, workoutKey string) (*sessions.WorkoutSession, error)
	SaveSection(ctx context.Context, draft sessions.SectionDraft) (*sessions.WorkoutSession, error)
	ClearSection(ctx context.Context, workoutKey string, section workout.Section) error
}

type completionTracker interface {
	RegisterSection(ctx context.Context, sectionKey string, totalItems int) error
	EnsureSection(ctx context.Context, sectionKey string, totalItems int) error
	MarkComplete(ctx context.Context, sectionKey string, tokens ...string) error
	Unmark(ctx context.Context, sectionKey string, tokens ...string) error
	Completed(ctx context.Context, sectionKey string) ([]string, error)
	GetCompletion(ctx context.Context, sectionKey string) (completion.Summary, error)
	Reset(ctx context.Context, sectionKey string) error
	IsWorkoutComplete(ctx context.Context, workoutKey string) (bool, error)
}

type scheduleRepo interface {
	SetCompleted(ctx context.Context, workoutKey string, completed bool, at time.Time) error
	IsCompleted(ctx context.Context, workoutKey string) (bool, error)
}

// Deps are the collaborators an engine persists through. Now and AfterFunc are optional.
type Deps struct {
	Templates    templateProvider
	Library      movementLibrary
	Sessions     sessionStore
	Completion   completionTracker
	Progress     progress.Store
	Schedule     scheduleRepo
	Units        units.Provider
	SetCompleted *events.CallbackEvent[workout.SetCompleted]
	Metrics      *metrics.Manager
	Now          func() time.Time
	AfterFunc    AfterFunc
}

type Settings struct {
	RestDuration     time.Duration
	ExerciseDuration time.Duration
	// PersistTimeout bounds the writes done from timer callbacks, which have no request context.
	PersistTimeout time.Duration
	// IdleTimeout closes engines left alone for longer. Zero keeps them open.
	IdleTimeout time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		RestDuration:     90 * time.Second,
		ExerciseDuration: 45 * time.Second,
		PersistTimeout:   5 * time.Second,
		IdleTimeout:      3 * time.Hour,
	}
}

type OpenParams struct {
	WorkoutKey string
	TemplateID string
	Section    workout.Section
	Date       time.Time
}

// Engine drives one section of one scheduled workout: which group is active, which
// exercise and round are up, the exercise and rest countdowns, and the persistence of
// every logged set. All operations are serialized on the engine's mutex.
type Engine struct {
	mutex    sync.Mutex
	deps     Deps
	settings Settings
	timers   *Timers

	workoutKey string
	templateID string
	section    workout.Section
	sectionKey string
	date       time.Time

	template *workout.Template
	items    []workout.ExerciseItem
	groups   []workout.ExerciseGroup

	completed   map[workout.SetKey]bool
	rounds      map[string]int
	completedAt map[string]time.Time
	edits       map[workout.SetKey]workout.SetValue
	progress    map[string]progress.Record
	session     *sessions.WorkoutSession

	status         Status
	phase          Phase
	locked         bool
	activeGroup    int
	activeExercise int
	upNext         string
	closed         bool
}

// Open loads the section's template and persisted progress, and resumes where it was left.
func Open(ctx context.Context, deps Deps, settings Settings, params OpenParams) (_ *Engine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "execution.engine.open")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout_key", params.WorkoutKey))
	span.SetAttributes(attribute.String("section", params.Section.String()))

	if !params.Section.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSection, params.Section)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SetCompleted == nil {
		deps.SetCompleted = events.NewCallbackEvent[workout.SetCompleted]()
	}
	if params.Date.IsZero() {
		params.Date = deps.Now()
	}

	e := &Engine{
		deps:        deps,
		settings:    settings,
		workoutKey:  params.WorkoutKey,
		templateID:  params.TemplateID,
		section:     params.Section,
		sectionKey:  completion.SectionKey(params.WorkoutKey, params.Section),
		date:        params.Date,
		activeGroup: -1,
	}
	e.timers = NewTimers(deps.AfterFunc, deps.Now, e.handleTimer)

	if err := e.load(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) load(ctx context.Context) error {
	tmpl, err := e.deps.Templates.GetTemplate(ctx, e.templateID)
	if err != nil {
		return fmt.Errorf("get template [%s]: %w", e.templateID, err)
	}
	e.template = tmpl

	swaps, err := e.deps.Progress.Swaps(ctx, e.sectionKey)
	if err != nil {
		return fmt.Errorf("list swaps: %w", err)
	}
	e.items = applySwaps(tmpl.ItemsFor(e.section), swaps)
	e.groups = workout.BuildGroups(e.items)

	if err := e.registerTotals(ctx); err != nil {
		return err
	}

	tokens, err := e.deps.Completion.Completed(ctx, e.sectionKey)
	if err != nil {
		return fmt.Errorf("list completed: %w", err)
	}
	session, err := e.deps.Sessions.Find(ctx, e.workoutKey)
	if err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
		return fmt.Errorf("find session: %w", err)
	}
	records, err := e.deps.Progress.List(ctx, e.sectionKey)
	if err != nil {
		return fmt.Errorf("list progress: %w", err)
	}

	e.session = session
	e.progress = progress.Index(records)
	e.edits = make(map[workout.SetKey]workout.SetValue)
	e.completed = make(map[workout.SetKey]bool)

	for _, token := range tokens {
		key, err := workout.ParseSetKey(token)
		if err != nil {
			log.Warnf("engine [%s]: skipping completion token: %s", e.sectionKey, err)
			continue
		}
		if e.isCurrentKey(key) {
			e.completed[key] = true
		}
	}

	// sets found only in the session are marked again, so the completion percentage heals
	var missing []string
	for _, r := range session.SectionRecords(e.section) {
		key := r.Key()
		if !r.IsCompleted || !e.isCurrentKey(key) || e.completed[key] {
			continue
		}
		e.completed[key] = true
		missing = append(missing, key.Token())
	}
	if len(missing) > 0 {
		log.Debugf("engine [%s]: healing %d completion tokens from session", e.sectionKey, len(missing))
		if err := e.deps.Completion.MarkComplete(ctx, e.sectionKey, missing...); err != nil {
			log.Errorf("engine [%s]: heal completion: %s", e.sectionKey, err)
		}
	}

	e.rounds = make(map[string]int, len(e.groups))
	e.completedAt = make(map[string]time.Time)
	for _, g := range e.groups {
		done := workout.CompletedRounds(g, e.completed)
		e.rounds[g.ID] = done
		if workout.IsGroupComplete(g, done) {
			e.completedAt[g.ID] = e.lastProgressAt(g)
		}
	}

	e.resume()
	return nil
}

// registerTotals sets this section's total from its current items; the other sections
// only get one when none is known yet, since their engines may have swapped exercises.
func (e *Engine) registerTotals(ctx context.Context) error {
	for _, section := range workout.AllSections {
		key := completion.SectionKey(e.workoutKey, section)
		if section == e.section {
			if err := e.deps.Completion.RegisterSection(ctx, key, len(workout.SectionTokens(e.items))); err != nil {
				return fmt.Errorf("register section %s: %w", section, err)
			}
			continue
		}
		total := len(workout.SectionTokens(e.template.ItemsFor(section)))
		if err := e.deps.Completion.EnsureSection(ctx, key, total); err != nil {
			return fmt.Errorf("register section %s: %w", section, err)
		}
	}
	return nil
}

// resume picks the state from the restored progress: the last group (in list order) with
// any logged set decides where to continue.
func (e *Engine) resume() {
	e.locked = false
	e.phase = PhaseNone
	e.upNext = ""

	if len(e.groups) == 0 {
		e.status = StatusSectionComplete
		e.activeGroup = -1
		return
	}

	last := -1
	for gi := len(e.groups) - 1; gi >= 0; gi-- {
		if e.groupHasProgress(e.groups[gi]) {
			last = gi
			break
		}
	}

	if last < 0 {
		e.status = StatusNoGroupActive
		e.activeGroup = -1
		return
	}

	if workout.IsGroupComplete(e.groups[last], e.rounds[e.groups[last].ID]) {
		next, ok := workout.NextIncompleteGroup(e.groups, e.rounds, last)
		if !ok {
			e.status = StatusSectionComplete
			e.activeGroup = -1
			return
		}
		e.activate(next)
		return
	}

	e.activate(last)
	e.locked = true
}

func (e *Engine) activate(groupIdx int) {
	g := e.groups[groupIdx]
	e.activeGroup = groupIdx
	e.activeExercise = 0
	if ex, ok := workout.FirstPendingExercise(g, e.rounds[g.ID], e.completed); ok {
		e.activeExercise = ex
	}
	e.status = StatusGroupActive
	e.phase = PhaseNone
}

// Select makes the group active. Not allowed once a set of the active group is logged.
func (e *Engine) Select(ctx context.Context, groupID string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	// resting after the last set of a group: the group is done, choosing the next one is fine
	if e.status == StatusTimerPending && e.phase == PhaseRest {
		if plan := e.planAdvanceLocked(); plan.kind == advanceNextGroup {
			e.timers.Cancel()
			if err := e.applyAdvance(ctx, plan); err != nil {
				log.Errorf("engine [%s]: advance before select: %s", e.sectionKey, err)
			}
		}
	}
	if e.locked {
		return ErrSelectionLocked
	}
	gi := workout.FindGroup(e.groups, groupID)
	if gi < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	if workout.IsGroupComplete(e.groups[gi], e.rounds[groupID]) {
		return fmt.Errorf("%w: %s", ErrGroupCompleted, groupID)
	}

	// an exercise countdown of an unlocked group has nothing logged yet, drop it
	if e.status == StatusTimerPending {
		e.timers.Cancel()
	}
	e.activate(gi)
	return nil
}

// Start begins the active exercise: a timed one starts its countdown, anything else is
// logged right away. With no active group, the first unfinished one is picked.
func (e *Engine) Start(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if e.status == StatusNoGroupActive {
		gi, ok := workout.NextIncompleteGroup(e.groups, e.rounds, -1)
		if !ok {
			return nil
		}
		e.activate(gi)
	}
	if e.status != StatusGroupActive {
		return nil
	}

	item, round, ok := e.activeItem()
	if !ok {
		return nil
	}
	if item.Mode == workout.ModeTime {
		d, ok := item.SetDuration(round)
		if !ok {
			d = e.settings.ExerciseDuration
		}
		e.status = StatusTimerPending
		e.phase = PhaseExercise
		e.timers.Start(PhaseExercise, d)
		return nil
	}

	return e.completeActiveLocked(ctx)
}

// Complete logs the active set. During a running exercise countdown it finishes it early.
func (e *Engine) Complete(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	switch {
	case e.status == StatusGroupActive:
	case e.status == StatusTimerPending && e.phase == PhaseExercise:
		e.timers.Cancel()
	default:
		return nil
	}
	return e.completeActiveLocked(ctx)
}

// SkipRest ends a running rest countdown and advances as if it had elapsed.
func (e *Engine) SkipRest(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if e.status != StatusTimerPending || e.phase != PhaseRest {
		return nil
	}
	e.timers.Cancel()
	return e.applyAdvance(ctx, e.planAdvanceLocked())
}

func (e *Engine) countingDown() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.status == StatusTimerPending
}

// Close stops the countdowns. A closed engine rejects all operations.
func (e *Engine) Close() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.closed = true
	e.timers.Cancel()
}

func (e *Engine) handleTimer(generation uint64, phase Phase) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed || !e.timers.Consume(generation) {
		e.deps.Metrics.CounterStaleTimerEvents.Inc()
		log.Tracef("engine [%s]: dropping stale %s timer #%d", e.sectionKey, phase, generation)
		return
	}
	e.deps.Metrics.CounterTimersFired.WithLabelValues(string(phase)).Inc()

	ctx, cancel := context.WithTimeout(context.Background(), e.settings.PersistTimeout)
	defer cancel()

	var err error
	switch phase {
	case PhaseExercise:
		err = e.completeActiveLocked(ctx)
	case PhaseRest:
		err = e.applyAdvance(ctx, e.planAdvanceLocked())
	}
	if err != nil {
		log.Errorf("engine [%s]: %s timer: %s", e.sectionKey, phase, err)
	}
}

// completeActiveLocked logs the active set, then either starts the rest countdown or advances.
// Persistence errors are returned, but the in-memory state moves on regardless.
func (e *Engine) completeActiveLocked(ctx context.Context) error {
	e.status = StatusGroupActive
	e.phase = PhaseNone

	item, round, ok := e.activeItem()
	if !ok {
		return nil
	}
	key := workout.NewSetKey(item.ID, round)
	if e.completed[key] {
		return nil
	}

	value := e.resolver().Resolve(item, round)
	now := e.deps.Now()
	e.completed[key] = true
	e.locked = true
	e.deps.Metrics.CounterSetsCompleted.WithLabelValues(e.section.String()).Inc()

	err := e.persistCompleted(ctx, now, progressRecord(item, round, value, true, now))
	e.publish(item, round, value, now)

	plan := e.planAdvanceLocked()
	rest := e.restDuration(item)
	if e.section.HasRestPhase() && rest > 0 && plan.kind != advanceSectionDone {
		e.upNext = e.upNextName(ctx, plan, item)
		e.status = StatusTimerPending
		e.phase = PhaseRest
		e.timers.Start(PhaseRest, rest)
		return err
	}

	return multierr.Append(err, e.applyAdvance(ctx, plan))
}

func (e *Engine) restDuration(item workout.ExerciseItem) time.Duration {
	if item.Rest != nil && *item.Rest > 0 {
		return *item.Rest
	}
	return e.settings.RestDuration
}

func (e *Engine) publish(item workout.ExerciseItem, round int, value workout.SetValue, at time.Time) {
	e.deps.SetCompleted.Notify(workout.SetCompleted{
		WorkoutKey:  e.workoutKey,
		Section:     e.section,
		Key:         workout.NewSetKey(item.ID, round),
		MovementID:  item.MovementID,
		Mode:        item.Mode,
		Value:       value,
		CompletedAt: at,
	})
}

type advanceKind int

const (
	advanceNone advanceKind = iota
	advanceStay
	advanceNextRound
	advanceNextGroup
	advanceSectionDone
)

// advancePlan is where the engine goes after a logged set. Computing it does not change
// anything, so the rest countdown can preview it.
type advancePlan struct {
	kind      advanceKind
	fromGroup int
	group     int
	exercise  int
	// round is the new completed-round count of fromGroup
	round int
}

func (e *Engine) planAdvanceLocked() advancePlan {
	return planAdvance(e.groups, e.rounds, e.completed, e.activeGroup, e.activeExercise)
}

func planAdvance(
	groups []workout.ExerciseGroup,
	rounds map[string]int,
	completed map[workout.SetKey]bool,
	groupIdx, exerciseIdx int,
) advancePlan {
	if groupIdx < 0 || groupIdx >= len(groups) {
		return advancePlan{kind: advanceNone}
	}
	g := groups[groupIdx]
	round := rounds[g.ID]

	if round < g.TotalRounds && !workout.IsRoundComplete(g, round, completed) {
		if ex, ok := workout.NextPendingExercise(g, round, exerciseIdx, completed); ok {
			return advancePlan{kind: advanceStay, fromGroup: groupIdx, group: groupIdx, exercise: ex, round: round}
		}
	}

	done := workout.CompletedRounds(g, completed)
	if done < round {
		done = round
	}
	if done < g.TotalRounds {
		ex, _ := workout.FirstPendingExercise(g, done, completed)
		if ex < 0 {
			ex = 0
		}
		return advancePlan{kind: advanceNextRound, fromGroup: groupIdx, group: groupIdx, exercise: ex, round: done}
	}

	next := make(map[string]int, len(rounds))
	for id, r := range rounds {
		next[id] = r
	}
	next[g.ID] = done

	ni, ok := workout.NextIncompleteGroup(groups, next, groupIdx)
	if !ok {
		return advancePlan{kind: advanceSectionDone, fromGroup: groupIdx, group: -1, round: done}
	}
	ng := groups[ni]
	ex, _ := workout.FirstPendingExercise(ng, next[ng.ID], completed)
	if ex < 0 {
		ex = 0
	}
	return advancePlan{kind: advanceNextGroup, fromGroup: groupIdx, group: ni, exercise: ex, round: done}
}

func (e *Engine) applyAdvance(ctx context.Context, plan advancePlan) error {
	e.upNext = ""
	e.phase = PhaseNone

	switch plan.kind {
	case advanceStay:
		e.activeExercise = plan.exercise
		e.status = StatusGroupActive
		return nil

	case advanceNextRound:
		g := e.groups[plan.fromGroup]
		e.rounds[g.ID] = plan.round
		err := e.seedRound(ctx, g, plan.round-1, plan.round)
		e.activeGroup = plan.group
		e.activeExercise = plan.exercise
		e.status = StatusGroupActive
		return err

	case advanceNextGroup, advanceSectionDone:
		g := e.groups[plan.fromGroup]
		e.rounds[g.ID] = plan.round
		if _, ok := e.completedAt[g.ID]; !ok {
			e.completedAt[g.ID] = e.deps.Now()
		}
		e.deps.Metrics.CounterGroupsCompleted.WithLabelValues(e.section.String()).Inc()
		log.Debugf("engine [%s]: group [%s] completed", e.sectionKey, g.ID)

		if plan.kind == advanceNextGroup {
			e.activate(plan.group)
			e.locked = false
			return nil
		}
		return e.finishSectionLocked(ctx)

	default:
		e.status = StatusNoGroupActive
		return nil
	}
}

// seedRound carries the values of the finished round into the next one, but only for sets
// nothing specific is known about yet.
func (e *Engine) seedRound(ctx context.Context, g workout.ExerciseGroup, fromRound, toRound int) error {
	if fromRound < 0 {
		return nil
	}
	res := e.resolver()
	now := e.deps.Now()

	var seeded []progress.Record
	for _, ex := range g.Exercises {
		if !ex.HasRound(toRound) || !ex.HasRound(fromRound) {
			continue
		}
		if _, src := res.ResolveWithSource(ex, toRound); src != SourceTemplate {
			continue
		}
		prev := res.Resolve(ex, fromRound)
		if prev == ex.DefaultValue(toRound) {
			continue
		}
		key := workout.NewSetKey(ex.ID, toRound)
		e.edits[key] = prev
		rec := progressRecord(ex, toRound, prev, false, now)
		e.progress[rec.Field()] = rec
		seeded = append(seeded, rec)
	}
	if len(seeded) == 0 {
		return nil
	}
	if err := e.deps.Progress.Put(ctx, e.sectionKey, seeded...); err != nil {
		e.deps.Metrics.CounterPersistErrors.Inc()
		return fmt.Errorf("put seeded progress: %w", err)
	}
	return nil
}

func (e *Engine) finishSectionLocked(ctx context.Context) error {
	e.status = StatusSectionComplete
	e.phase = PhaseNone
	e.activeGroup = -1
	e.activeExercise = 0
	e.locked = false
	e.deps.Metrics.CounterSectionsCompleted.WithLabelValues(e.section.String()).Inc()
	log.Debugf("engine [%s]: section completed", e.sectionKey)

	err := e.saveSessionLocked(ctx)
	return multierr.Append(err, e.checkWorkoutComplete(ctx))
}

// checkWorkoutComplete marks the scheduled workout done once all sections are at 100%.
func (e *Engine) checkWorkoutComplete(ctx context.Context) error {
	done, err := e.deps.Completion.IsWorkoutComplete(ctx, e.workoutKey)
	if err != nil {
		return fmt.Errorf("check workout complete: %w", err)
	}
	if !done {
		return nil
	}

	alreadyMarked, err := e.deps.Schedule.IsCompleted(ctx, e.workoutKey)
	if err != nil {
		log.Warnf("engine [%s]: is workout completed: %s", e.sectionKey, err)
	}
	if err := e.deps.Schedule.SetCompleted(ctx, e.workoutKey, true, e.deps.Now()); err != nil {
		return fmt.Errorf("mark workout completed: %w", err)
	}
	if !alreadyMarked {
		e.deps.Metrics.CounterWorkoutsCompleted.Inc()
		log.Infof("workout [%s] completed", e.workoutKey)
	}
	return nil
}

func (e *Engine) resolver() Resolver {
	return NewResolver(e.section, e.edits, e.progress, e.session)
}

func (e *Engine) activeItem() (workout.ExerciseItem, int, bool) {
	if e.activeGroup < 0 || e.activeGroup >= len(e.groups) {
		return workout.ExerciseItem{}, 0, false
	}
	g := e.groups[e.activeGroup]
	if e.activeExercise < 0 || e.activeExercise >= len(g.Exercises) {
		return workout.ExerciseItem{}, 0, false
	}
	item := g.Exercises[e.activeExercise]
	round := e.rounds[g.ID]
	if !item.HasRound(round) {
		return workout.ExerciseItem{}, 0, false
	}
	return item, round, true
}

func (e *Engine) itemByID(itemID string) (int, bool) {
	for i, item := range e.items {
		if item.ID == itemID {
			return i, true
		}
	}
	return -1, false
}

func (e *Engine) isCurrentKey(key workout.SetKey) bool {
	i, ok := e.itemByID(key.ExerciseItemID)
	return ok && e.items[i].HasRound(key.Round)
}

func (e *Engine) groupHasProgress(g workout.ExerciseGroup) bool {
	for _, ex := range g.Exercises {
		for r := range ex.Sets {
			if e.completed[workout.NewSetKey(ex.ID, r)] {
				return true
			}
		}
	}
	return false
}

// lastProgressAt approximates when a restored group was completed.
func (e *Engine) lastProgressAt(g workout.ExerciseGroup) time.Time {
	var last time.Time
	for _, ex := range g.Exercises {
		for r := range ex.Sets {
			rec, ok := e.progress[progress.RecordField(ex.StableID(), r)]
			if ok && rec.ExerciseID == ex.ID && rec.Completed && rec.UpdatedAt.After(last) {
				last = rec.UpdatedAt
			}
		}
	}
	if last.IsZero() {
		return e.deps.Now()
	}
	return last
}

func (e *Engine) upNextName(ctx context.Context, plan advancePlan, done workout.ExerciseItem) string {
	switch plan.kind {
	case advanceStay, advanceNextRound, advanceNextGroup:
		g := e.groups[plan.group]
		if plan.exercise < 0 || plan.exercise >= len(g.Exercises) {
			return ""
		}
		next := g.Exercises[plan.exercise]
		if next.ID == done.ID {
			return ""
		}
		return e.deps.Library.Name(ctx, next.MovementID)
	default:
		return ""
	}
}

func progressRecord(item workout.ExerciseItem, round int, value workout.SetValue, completed bool, at time.Time) progress.Record {
	return progress.Record{
		TemplateExerciseID: item.StableID(),
		ExerciseID:         item.ID,
		Round:              round,
		Weight:             value.Weight,
		Reps:               value.Reps,
		Completed:          completed,
		UpdatedAt:          at,
	}
}

// applySwaps replaces the template slots that had their exercise swapped.
func applySwaps(items []workout.ExerciseItem, swaps map[string]workout.ExerciseItem) []workout.ExerciseItem {
	result := make([]workout.ExerciseItem, len(items))
	for i, item := range items {
		if swapped, ok := swaps[item.StableID()]; ok {
			result[i] = swapped
			continue
		}
		result[i] = item
	}
	return result
}
