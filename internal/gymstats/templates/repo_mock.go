package templates

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/2beens/gymrunner/internal/gymstats/workout"
)

type repoMock struct {
	mutex     sync.Mutex
	templates map[string][]byte
	movements map[string]string
	gets      int
}

func NewMockTemplatesRepo() *repoMock {
	return &repoMock{
		templates: make(map[string][]byte),
		movements: make(map[string]string),
	}
}

func (r *repoMock) GetTemplate(_ context.Context, id string) (*workout.Template, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.gets++
	raw, ok := r.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	// stored encoded so callers never share slices with the repo
	tmpl := &workout.Template{}
	if err := json.Unmarshal(raw, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

func (r *repoMock) SaveTemplate(_ context.Context, tmpl *workout.Template) error {
	raw, err := json.Marshal(tmpl)
	if err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.templates[tmpl.ID] = raw
	return nil
}

func (r *repoMock) MovementName(_ context.Context, movementID string) (string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	name, ok := r.movements[movementID]
	if !ok {
		return "", ErrMovementNotFound
	}
	return name, nil
}

func (r *repoMock) SaveMovement(_ context.Context, movementID, name string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.movements[movementID] = name
	return nil
}

// TemplateGets tells how many times the repo was asked for a template.
func (r *repoMock) TemplateGets() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.gets
}
