package execution

import (
	"sync"
	"time"
)

// Stopper is what a scheduled callback hands back, *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Stopper

func realAfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Timers runs at most one countdown at a time, either the exercise or the rest one.
// Each start bumps the generation; a callback carries the generation it was started with,
// so a fire that lost the race against Cancel or a newer Start is recognised as stale.
type Timers struct {
	mutex      sync.Mutex
	afterFunc  AfterFunc
	now        func() time.Time
	onFire     func(generation uint64, phase Phase)
	generation uint64
	running    Stopper
	phase      Phase
	endsAt     time.Time
}

func NewTimers(afterFunc AfterFunc, now func() time.Time, onFire func(generation uint64, phase Phase)) *Timers {
	if afterFunc == nil {
		afterFunc = realAfterFunc
	}
	if now == nil {
		now = time.Now
	}
	return &Timers{
		afterFunc: afterFunc,
		now:       now,
		onFire:    onFire,
	}
}

// Start cancels whatever runs and starts a countdown for the phase.
func (t *Timers) Start(phase Phase, d time.Duration) uint64 {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.stopLocked()
	t.generation++
	gen := t.generation
	t.phase = phase
	t.endsAt = t.now().Add(d)
	t.running = t.afterFunc(d, func() {
		t.onFire(gen, phase)
	})
	return gen
}

// Cancel stops the running countdown, if any. A callback already on its way is made stale.
func (t *Timers) Cancel() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.stopLocked()
	t.generation++
}

// Consume marks the countdown with the given generation as done. Returns false for a stale one.
func (t *Timers) Consume(generation uint64) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if generation != t.generation || t.running == nil {
		return false
	}
	t.running = nil
	t.phase = PhaseNone
	t.endsAt = time.Time{}
	return true
}

// Pending returns the running countdown's phase and end time.
func (t *Timers) Pending() (Phase, time.Time, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.running == nil {
		return PhaseNone, time.Time{}, false
	}
	return t.phase, t.endsAt, true
}

func (t *Timers) stopLocked() {
	if t.running != nil {
		t.running.Stop()
	}
	t.running = nil
	t.phase = PhaseNone
	t.endsAt = time.Time{}
}
