package events

import (
	"sync"
)

// CallbackEvent is a small typed pub/sub. Listeners are called synchronously, in the
// order they registered, outside the lock.
type CallbackEvent[T any] struct {
	mutex     sync.RWMutex
	listeners []listener[T]
	nextID    uint64
}

type listener[T any] struct {
	id       uint64
	callback func(T)
}

func NewCallbackEvent[T any]() *CallbackEvent[T] {
	return &CallbackEvent[T]{}
}

// Listen registers callback and returns a func that removes it again.
// Calling the returned func more than once is safe.
func (e *CallbackEvent[T]) Listen(callback func(T)) func() {
	if callback == nil {
		panic("callback cannot be nil")
	}

	e.mutex.Lock()
	id := e.nextID
	e.nextID++
	e.listeners = append(e.listeners, listener[T]{id: id, callback: callback})
	e.mutex.Unlock()

	return func() {
		e.mutex.Lock()
		defer e.mutex.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

func (e *CallbackEvent[T]) Notify(value T) {
	e.mutex.RLock()
	listenersCopy := make([]listener[T], len(e.listeners))
	copy(listenersCopy, e.listeners)
	e.mutex.RUnlock()

	for _, l := range listenersCopy {
		l.callback(value)
	}
}

func (e *CallbackEvent[T]) ListenerCount() int {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return len(e.listeners)
}
