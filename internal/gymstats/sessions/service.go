package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/gymrunner/internal/gymstats/workout"
	"github.com/2beens/gymrunner/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=sessions_test

type sessionsRepo interface {
	Add(ctx context.Context, session *WorkoutSession) error
	Update(ctx context.Context, session *WorkoutSession) error
	Delete(ctx context.Context, id string) error
	FindByWorkoutKey(ctx context.Context, workoutKey string) (*WorkoutSession, error)
}

// SectionDraft carries the current records of one section, to be merged into the workout's session.
type SectionDraft struct {
	WorkoutKey string
	TemplateID string
	Section    workout.Section
	Date       time.Time
	Records    []SetRecord
}

// Service owns the single session row of a workout. All sections write into that row, so saves
// of the same workout are serialized here; the section engines only lock their own state.
type Service struct {
	repo  sessionsRepo
	newID func() string

	locksMutex sync.Mutex
	locks      map[string]*workoutLock
}

type workoutLock struct {
	sync.Mutex
	holders int
}

func NewService(repo sessionsRepo) *Service {
	return &Service{
		repo:  repo,
		newID: uuid.NewString,
		locks: make(map[string]*workoutLock),
	}
}

// lockWorkout blocks until the caller owns the workout's session row. Returns the unlock func.
func (s *Service) lockWorkout(workoutKey string) func() {
	s.locksMutex.Lock()
	l, ok := s.locks[workoutKey]
	if !ok {
		l = &workoutLock{}
		s.locks[workoutKey] = l
	}
	l.holders++
	s.locksMutex.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.locksMutex.Lock()
		defer s.locksMutex.Unlock()
		l.holders--
		if l.holders == 0 {
			delete(s.locks, workoutKey)
		}
	}
}

// Find returns the session of the workout, or ErrSessionNotFound.
func (s *Service) Find(ctx context.Context, workoutKey string) (_ *WorkoutSession, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.find")
	defer func() {
		if errors.Is(err, ErrSessionNotFound) {
			span.End()
			return
		}
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout_key", workoutKey))

	return s.repo.FindByWorkoutKey(ctx, workoutKey)
}

// SaveSection replaces the section's records in the workout's session, keeping other sections intact.
// A session is only created once it holds a completed set, and it is deleted once none remain.
// Returns the stored session, or nil when no session exists after the save.
func (s *Service) SaveSection(ctx context.Context, draft SectionDraft) (_ *WorkoutSession, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.savesection")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout_key", draft.WorkoutKey))
	span.SetAttributes(attribute.String("section", draft.Section.String()))
	span.SetAttributes(attribute.Int("records", len(draft.Records)))

	unlock := s.lockWorkout(draft.WorkoutKey)
	defer unlock()

	return s.saveSectionLocked(ctx, draft, true)
}

func (s *Service) saveSectionLocked(ctx context.Context, draft SectionDraft, retryOnConflict bool) (*WorkoutSession, error) {
	existing, err := s.repo.FindByWorkoutKey(ctx, draft.WorkoutKey)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, fmt.Errorf("find session: %w", err)
	}

	var base []SetRecord
	if existing != nil {
		base = existing.Sets
	}
	merged := mergeSection(base, draft.Section, draft.Records)
	session := &WorkoutSession{
		TemplateID: draft.TemplateID,
		WorkoutKey: draft.WorkoutKey,
		Date:       draft.Date,
		Sets:       merged,
	}

	if existing == nil {
		if session.CompletedCount() == 0 {
			return nil, nil
		}
		session.ID = s.newID()
		if err := s.repo.Add(ctx, session); err != nil {
			if !errors.Is(err, ErrSessionExists) || !retryOnConflict {
				return nil, fmt.Errorf("add session: %w", err)
			}
			// another process created it in the meantime, merge into that one
			log.Warnf("session for workout [%s] created concurrently, updating instead", draft.WorkoutKey)
			return s.saveSectionLocked(ctx, draft, false)
		}
		log.Debugf("created session [%s] for workout [%s]", session.ID, draft.WorkoutKey)
		return session, nil
	}

	session.ID = existing.ID
	if session.TemplateID == "" {
		session.TemplateID = existing.TemplateID
	}
	if session.Date.IsZero() {
		session.Date = existing.Date
	}

	if session.CompletedCount() == 0 {
		if err := s.repo.Delete(ctx, existing.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("delete session: %w", err)
		}
		log.Debugf("deleted empty session [%s] for workout [%s]", existing.ID, draft.WorkoutKey)
		return nil, nil
	}

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return session, nil
}

// ClearSection drops all records of the section. Clearing a section with no records is a no-op.
func (s *Service) ClearSection(ctx context.Context, workoutKey string, section workout.Section) error {
	_, err := s.SaveSection(ctx, SectionDraft{
		WorkoutKey: workoutKey,
		Section:    section,
	})
	return err
}

func mergeSection(existing []SetRecord, section workout.Section, records []SetRecord) []SetRecord {
	merged := make([]SetRecord, 0, len(existing)+len(records))
	for _, r := range existing {
		if r.Section != section {
			merged = append(merged, r)
		}
	}
	for _, r := range records {
		r.Section = section
		merged = append(merged, r)
	}
	return merged
}
