package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/gymrunner/internal/gymstats/completion"
	"github.com/2beens/gymrunner/internal/gymstats/workout"

	log "github.com/sirupsen/logrus"
)

// Manager keeps one open engine per workout section.
// Engines not used for Settings.IdleTimeout are closed on the next Open or Get.
type Manager struct {
	mutex    sync.Mutex
	deps     Deps
	settings Settings
	engines  map[string]*managedEngine
}

type managedEngine struct {
	engine   *Engine
	lastUsed time.Time
}

func NewManager(deps Deps, settings Settings) *Manager {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Manager{
		deps:     deps,
		settings: settings,
		engines:  make(map[string]*managedEngine),
	}
}

// Open returns the section's engine, loading it on first use.
// An engine opened for another template is replaced.
func (m *Manager) Open(ctx context.Context, params OpenParams) (*Engine, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.deps.Now()
	m.evictIdleLocked(now)

	key := completion.SectionKey(params.WorkoutKey, params.Section)
	if me, ok := m.engines[key]; ok {
		if params.TemplateID == "" || me.engine.templateID == params.TemplateID {
			me.lastUsed = now
			return me.engine, nil
		}
		log.Infof("engine [%s]: template changed [%s] -> [%s], reopening", key, me.engine.templateID, params.TemplateID)
		me.engine.Close()
		delete(m.engines, key)
	}

	e, err := Open(ctx, m.deps, m.settings, params)
	if err != nil {
		m.deps.Metrics.GaugeOpenEngines.Set(float64(len(m.engines)))
		return nil, err
	}
	m.engines[key] = &managedEngine{engine: e, lastUsed: now}
	m.deps.Metrics.GaugeOpenEngines.Set(float64(len(m.engines)))
	return e, nil
}

func (m *Manager) Get(workoutKey string, section workout.Section) (*Engine, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.deps.Now()
	if m.evictIdleLocked(now) > 0 {
		m.deps.Metrics.GaugeOpenEngines.Set(float64(len(m.engines)))
	}
	me, ok := m.engines[completion.SectionKey(workoutKey, section)]
	if !ok {
		return nil, false
	}
	me.lastUsed = now
	return me.engine, true
}

// EvictIdle closes the engines nobody used for the idle timeout and returns how many were closed.
func (m *Manager) EvictIdle() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	evicted := m.evictIdleLocked(m.deps.Now())
	m.deps.Metrics.GaugeOpenEngines.Set(float64(len(m.engines)))
	return evicted
}

// engines with a running countdown stay, the countdown callback still needs them
func (m *Manager) evictIdleLocked(now time.Time) int {
	if m.settings.IdleTimeout <= 0 {
		return 0
	}
	evicted := 0
	for key, me := range m.engines {
		if now.Sub(me.lastUsed) < m.settings.IdleTimeout || me.engine.countingDown() {
			continue
		}
		log.Debugf("engine [%s]: idle since %s, closing", key, me.lastUsed.Format(time.RFC3339))
		me.engine.Close()
		delete(m.engines, key)
		evicted++
	}
	return evicted
}

// Close stops and forgets the section's engine. Persisted progress stays.
func (m *Manager) Close(workoutKey string, section workout.Section) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := completion.SectionKey(workoutKey, section)
	me, ok := m.engines[key]
	if !ok {
		return false
	}
	me.engine.Close()
	delete(m.engines, key)
	m.deps.Metrics.GaugeOpenEngines.Set(float64(len(m.engines)))
	return true
}

func (m *Manager) CloseAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for key, me := range m.engines {
		me.engine.Close()
		delete(m.engines, key)
	}
	m.deps.Metrics.GaugeOpenEngines.Set(0)
}

// WorkoutCompletion holds the completion of all sections of one workout.
type WorkoutCompletion struct {
	WorkoutKey string                                 `json:"workoutKey"`
	Sections   map[workout.Section]completion.Summary `json:"sections"`
	Complete   bool                                   `json:"complete"`
}

func (m *Manager) WorkoutCompletion(ctx context.Context, workoutKey string) (*WorkoutCompletion, error) {
	wc := &WorkoutCompletion{
		WorkoutKey: workoutKey,
		Sections:   make(map[workout.Section]completion.Summary, len(workout.AllSections)),
		Complete:   true,
	}
	for _, section := range workout.AllSections {
		summary, err := m.deps.Completion.GetCompletion(ctx, completion.SectionKey(workoutKey, section))
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", section, err)
		}
		wc.Sections[section] = summary
		wc.Complete = wc.Complete && summary.IsComplete()
	}
	return wc, nil
}
