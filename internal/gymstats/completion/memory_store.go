package completion

import (
	"context"
	"sort"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	mutex     sync.Mutex
	completed map[string]map[string]struct{}
	totals    map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		completed: make(map[string]map[string]struct{}),
		totals:    make(map[string]int),
	}
}

func (m *MemoryStore) Add(_ context.Context, sectionKey string, tokens ...string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	set, ok := m.completed[sectionKey]
	if !ok {
		set = make(map[string]struct{})
		m.completed[sectionKey] = set
	}
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, sectionKey string, tokens ...string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, t := range tokens {
		delete(m.completed[sectionKey], t)
	}
	return nil
}

func (m *MemoryStore) Members(_ context.Context, sectionKey string) ([]string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	members := make([]string, 0, len(m.completed[sectionKey]))
	for t := range m.completed[sectionKey] {
		members = append(members, t)
	}
	sort.Strings(members)
	return members, nil
}

func (m *MemoryStore) Count(_ context.Context, sectionKey string) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.completed[sectionKey]), nil
}

func (m *MemoryStore) SetTotal(_ context.Context, sectionKey string, total int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.totals[sectionKey] = total
	return nil
}

func (m *MemoryStore) Total(_ context.Context, sectionKey string) (int, bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	total, ok := m.totals[sectionKey]
	return total, ok, nil
}

func (m *MemoryStore) Clear(_ context.Context, sectionKey string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.completed, sectionKey)
	return nil
}
