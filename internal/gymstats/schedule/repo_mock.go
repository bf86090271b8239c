package schedule

import (
	"context"
	"sync"
	"time"
)

type repoMock struct {
	mutex     sync.Mutex
	completed map[string]time.Time
}

func NewMockScheduleRepo() *repoMock {
	return &repoMock{
		completed: make(map[string]time.Time),
	}
}

func (r *repoMock) SetCompleted(_ context.Context, workoutKey string, completed bool, at time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if completed {
		r.completed[workoutKey] = at
	} else {
		delete(r.completed, workoutKey)
	}
	return nil
}

func (r *repoMock) IsCompleted(_ context.Context, workoutKey string) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	_, ok := r.completed[workoutKey]
	return ok, nil
}
