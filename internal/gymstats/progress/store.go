package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/2beens/gymrunner/internal/gymstats/workout"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix      = "gymrunner-progress||"
	swapsKeyPrefix = "gymrunner-progress-swaps||"

	DefaultTTL = 30 * 24 * time.Hour
)

type Store interface {
	Put(ctx context.Context, sectionKey string, records ...Record) error
	List(ctx context.Context, sectionKey string) ([]Record, error)
	// PutSwap remembers the exercise that replaced a template slot, keyed by item.TemplateExerciseID.
	PutSwap(ctx context.Context, sectionKey string, item workout.ExerciseItem) error
	// Swaps returns the replaced slots, by template exercise ID.
	Swaps(ctx context.Context, sectionKey string) (map[string]workout.ExerciseItem, error)
	// Clear drops the section's records and swaps.
	Clear(ctx context.Context, sectionKey string) error
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// RedisStore keeps one hash per section, field = "<templateExerciseID>#<round>", value = JSON record.
// The hashes expire ttl after their last write, zero keeps them.
type RedisStore struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func (s *RedisStore) Put(ctx context.Context, sectionKey string, records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(records)*2)
	for _, r := range records {
		recordJson, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal progress record: %w", err)
		}
		values = append(values, r.Field(), string(recordJson))
	}

	key := keyPrefix + sectionKey
	if err := s.redisClient.HSet(ctx, key, values...).Err(); err != nil {
		return err
	}
	return s.expire(ctx, key)
}

func (s *RedisStore) List(ctx context.Context, sectionKey string) ([]Record, error) {
	cmd := s.redisClient.HGetAll(ctx, keyPrefix+sectionKey)
	if err := cmd.Err(); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(cmd.Val()))
	for field, value := range cmd.Val() {
		var r Record
		if err := json.Unmarshal([]byte(value), &r); err != nil {
			return nil, fmt.Errorf("unmarshal progress record [%s]: %w", field, err)
		}
		records = append(records, r)
	}
	sortRecords(records)

	return records, nil
}

func (s *RedisStore) PutSwap(ctx context.Context, sectionKey string, item workout.ExerciseItem) error {
	itemJson, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal swapped item: %w", err)
	}
	key := swapsKeyPrefix + sectionKey
	if err := s.redisClient.HSet(ctx, key, item.TemplateExerciseID, string(itemJson)).Err(); err != nil {
		return err
	}
	return s.expire(ctx, key)
}

func (s *RedisStore) Swaps(ctx context.Context, sectionKey string) (map[string]workout.ExerciseItem, error) {
	cmd := s.redisClient.HGetAll(ctx, swapsKeyPrefix+sectionKey)
	if err := cmd.Err(); err != nil {
		return nil, err
	}

	swaps := make(map[string]workout.ExerciseItem, len(cmd.Val()))
	for slot, value := range cmd.Val() {
		var item workout.ExerciseItem
		if err := json.Unmarshal([]byte(value), &item); err != nil {
			return nil, fmt.Errorf("unmarshal swapped item [%s]: %w", slot, err)
		}
		swaps[slot] = item
	}
	return swaps, nil
}

func (s *RedisStore) Clear(ctx context.Context, sectionKey string) error {
	return s.redisClient.Del(ctx, keyPrefix+sectionKey, swapsKeyPrefix+sectionKey).Err()
}

func (s *RedisStore) expire(ctx context.Context, key string) error {
	if s.ttl == 0 {
		return nil
	}
	return s.redisClient.Expire(ctx, key, s.ttl).Err()
}

type MemoryStore struct {
	mutex   sync.Mutex
	records map[string]map[string]Record
	swaps   map[string]map[string]workout.ExerciseItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string]Record),
		swaps:   make(map[string]map[string]workout.ExerciseItem),
	}
}

func (m *MemoryStore) Put(_ context.Context, sectionKey string, records ...Record) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	section, ok := m.records[sectionKey]
	if !ok {
		section = make(map[string]Record)
		m.records[sectionKey] = section
	}
	for _, r := range records {
		section[r.Field()] = r
	}
	return nil
}

func (m *MemoryStore) List(_ context.Context, sectionKey string) ([]Record, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	records := make([]Record, 0, len(m.records[sectionKey]))
	for _, r := range m.records[sectionKey] {
		records = append(records, r)
	}
	sortRecords(records)
	return records, nil
}

func (m *MemoryStore) PutSwap(_ context.Context, sectionKey string, item workout.ExerciseItem) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	section, ok := m.swaps[sectionKey]
	if !ok {
		section = make(map[string]workout.ExerciseItem)
		m.swaps[sectionKey] = section
	}
	section[item.TemplateExerciseID] = item
	return nil
}

func (m *MemoryStore) Swaps(_ context.Context, sectionKey string) (map[string]workout.ExerciseItem, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	swaps := make(map[string]workout.ExerciseItem, len(m.swaps[sectionKey]))
	for slot, item := range m.swaps[sectionKey] {
		swaps[slot] = item
	}
	return swaps, nil
}

func (m *MemoryStore) Clear(_ context.Context, sectionKey string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.records, sectionKey)
	delete(m.swaps, sectionKey)
	return nil
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].TemplateExerciseID != records[j].TemplateExerciseID {
			return records[i].TemplateExerciseID < records[j].TemplateExerciseID
		}
		return records[i].Round < records[j].Round
	})
}
