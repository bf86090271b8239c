package execution_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/2beens/gymrunner/internal/events"
	"github.com/2beens/gymrunner/internal/gymstats/completion"
	"github.com/2beens/gymrunner/internal/gymstats/execution"
	"github.com/2beens/gymrunner/internal/gymstats/progress"
	"github.com/2beens/gymrunner/internal/gymstats/schedule"
	"github.com/2beens/gymrunner/internal/gymstats/sessions"
	"github.com/2beens/gymrunner/internal/gymstats/templates"
	"github.com/2beens/gymrunner/internal/gymstats/units"
	"github.com/2beens/gymrunner/internal/gymstats/workout"
	"github.com/2beens/gymrunner/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testWorkoutKey = "2024-05-01-push-a"

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasRunning := !t.stopped
	t.stopped = true
	return wasRunning
}

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	mutex  sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) execution.Stopper {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Scheduled() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.timers)
}

func (c *fakeClock) Last() *fakeTimer {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

// Fire runs the callback of the given timer, stopped or not, like a timer losing the race would.
func (c *fakeClock) Fire(t *fakeTimer) {
	c.Advance(t.d)
	t.f()
}

type testEnv struct {
	clock         *fakeClock
	templatesRepo interface {
		SaveTemplate(ctx context.Context, tmpl *workout.Template) error
		SaveMovement(ctx context.Context, movementID, name string) error
	}
	sessionsRepo interface{ Count() int }
	sessions     *sessions.Service
	schedule     interface {
		IsCompleted(ctx context.Context, workoutKey string) (bool, error)
	}
	completion   *completion.Adapter
	progress     *progress.MemoryStore
	setCompleted *events.CallbackEvent[workout.SetCompleted]
	metrics      *metrics.Manager
	registry     *prometheus.Registry
	deps         execution.Deps
	published    *[]workout.SetCompleted
}

func newTestEnv(t *testing.T, tmpl *workout.Template) *testEnv {
	t.Helper()
	ctx := context.Background()

	clock := newFakeClock()
	templatesRepo := templates.NewMockTemplatesRepo()
	require.NoError(t, templatesRepo.SaveTemplate(ctx, tmpl))
	require.NoError(t, templatesRepo.SaveMovement(ctx, "bench-press", "Bench Press"))
	require.NoError(t, templatesRepo.SaveMovement(ctx, "back-squat", "Back Squat"))
	provider := templates.NewCachedProvider(templatesRepo, 1, time.Minute)

	sessionsRepo := sessions.NewMockSessionsRepo()
	sessionsService := sessions.NewService(sessionsRepo)
	scheduleRepo := schedule.NewMockScheduleRepo()
	completionAdapter := completion.NewAdapter(completion.NewMemoryStore())
	progressStore := progress.NewMemoryStore()
	metricsManager, registry := metrics.NewTestManagerAndRegistry()

	setCompleted := events.NewCallbackEvent[workout.SetCompleted]()
	var publishedMutex sync.Mutex
	published := &[]workout.SetCompleted{}
	unsubscribe := setCompleted.Listen(func(evt workout.SetCompleted) {
		publishedMutex.Lock()
		defer publishedMutex.Unlock()
		*published = append(*published, evt)
	})
	t.Cleanup(unsubscribe)

	return &testEnv{
		clock:         clock,
		templatesRepo: templatesRepo,
		sessionsRepo:  sessionsRepo,
		sessions:      sessionsService,
		schedule:      scheduleRepo,
		completion:    completionAdapter,
		progress:      progressStore,
		setCompleted:  setCompleted,
		metrics:       metricsManager,
		registry:      registry,
		published:     published,
		deps: execution.Deps{
			Templates:    provider,
			Library:      provider,
			Sessions:     sessionsService,
			Completion:   completionAdapter,
			Progress:     progressStore,
			Schedule:     scheduleRepo,
			Units:        units.NewProvider(true),
			SetCompleted: setCompleted,
			Metrics:      metricsManager,
			Now:          clock.Now,
			AfterFunc:    clock.AfterFunc,
		},
	}
}

func (env *testEnv) open(t *testing.T, tmplID string, section workout.Section) *execution.Engine {
	t.Helper()
	engine, err := execution.Open(context.Background(), env.deps, execution.DefaultSettings(), execution.OpenParams{
		WorkoutKey: testWorkoutKey,
		TemplateID: tmplID,
		Section:    section,
	})
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func repsSets(n int, weight float64, reps int) []workout.SetDefinition {
	sets := make([]workout.SetDefinition, n)
	for i := range sets {
		w, r := weight, reps
		sets[i] = workout.SetDefinition{Weight: &w, Reps: &r}
	}
	return sets
}

func timedSets(n int, d time.Duration) []workout.SetDefinition {
	sets := make([]workout.SetDefinition, n)
	for i := range sets {
		dur := d
		sets[i] = workout.SetDefinition{Duration: &dur}
	}
	return sets
}

func singleItemTemplate(section workout.Section, item workout.ExerciseItem) *workout.Template {
	tmpl := &workout.Template{ID: "single", Name: "Single"}
	switch section {
	case workout.SectionWarmup:
		tmpl.WarmupItems = []workout.ExerciseItem{item}
	case workout.SectionMain:
		tmpl.Items = []workout.ExerciseItem{item}
	case workout.SectionCore:
		tmpl.AccessoryItems = []workout.ExerciseItem{item}
	}
	return tmpl
}

// pushTemplate has a superset in the main section and one item in every other section.
func pushTemplate() *workout.Template {
	return &workout.Template{
		ID:   "push-a",
		Name: "Push A",
		WarmupItems: []workout.ExerciseItem{
			{ID: "jacks", MovementID: "jumping-jacks", Mode: workout.ModeReps, Sets: repsSets(1, 0, 30)},
		},
		Items: []workout.ExerciseItem{
			{ID: "bench", MovementID: "bench-press", Mode: workout.ModeReps, Sets: repsSets(2, 100, 8)},
			{ID: "row", MovementID: "cable-row", Mode: workout.ModeReps, Sets: repsSets(2, 60, 12), CycleID: "ss1", CycleOrder: 1},
			{ID: "fly", MovementID: "cable-fly", Mode: workout.ModeReps, Sets: repsSets(2, 20, 15), CycleID: "ss1", CycleOrder: 2},
		},
		AccessoryItems: []workout.ExerciseItem{
			{ID: "plank", MovementID: "plank", Mode: workout.ModeTime, Sets: timedSets(2, 45*time.Second)},
		},
	}
}
