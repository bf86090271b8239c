package sessions

import (
	"context"
	"sync"
)

// repoMock keeps sessions in memory. Used in tests and when the service runs without postgres.
type repoMock struct {
	mutex    sync.Mutex
	sessions map[string]*WorkoutSession // by workout key
}

func NewMockSessionsRepo() *repoMock {
	return &repoMock{
		sessions: make(map[string]*WorkoutSession),
	}
}

func (r *repoMock) Add(_ context.Context, session *WorkoutSession) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.sessions[session.WorkoutKey]; ok {
		return ErrSessionExists
	}
	r.sessions[session.WorkoutKey] = session.clone()
	return nil
}

func (r *repoMock) Update(_ context.Context, session *WorkoutSession) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for key, s := range r.sessions {
		if s.ID == session.ID {
			delete(r.sessions, key)
			r.sessions[session.WorkoutKey] = session.clone()
			return nil
		}
	}
	return ErrSessionNotFound
}

func (r *repoMock) Delete(_ context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for key, s := range r.sessions {
		if s.ID == id {
			delete(r.sessions, key)
			return nil
		}
	}
	return ErrSessionNotFound
}

func (r *repoMock) FindByWorkoutKey(_ context.Context, workoutKey string) (*WorkoutSession, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	s, ok := r.sessions[workoutKey]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.clone(), nil
}

func (r *repoMock) Count() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.sessions)
}
