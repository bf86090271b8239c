package records

import (
	"context"
	"sort"
	"sync"
)

type repoMock struct {
	mutex   sync.Mutex
	records map[string]PersonalRecord
}

func NewMockRecordsRepo() *repoMock {
	return &repoMock{
		records: make(map[string]PersonalRecord),
	}
}

func (r *repoMock) Upsert(_ context.Context, record PersonalRecord) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.records[record.MovementID] = record
	return nil
}

func (r *repoMock) Get(_ context.Context, movementID string) (*PersonalRecord, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	record, ok := r.records[movementID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &record, nil
}

func (r *repoMock) List(_ context.Context) ([]PersonalRecord, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	list := make([]PersonalRecord, 0, len(r.records))
	for _, record := range r.records {
		list = append(list, record)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Date.After(list[j].Date)
	})
	return list, nil
}
