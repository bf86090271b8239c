package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2beens/gymrunner/internal/telemetry/tracing"
	"github.com/2beens/gymrunner/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrSessionNotFound = errors.New("workout session not found")
	ErrSessionExists   = errors.New("workout session already exists")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, session *WorkoutSession) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout_key", session.WorkoutKey))

	setsJson, err := json.Marshal(session.Sets)
	if err != nil {
		return fmt.Errorf("marshal sets: %w", err)
	}

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO workout_session (id, template_id, workout_key, date, sets, updated_at)
			VALUES ($1, $2, $3, $4, $5, now());`,
		session.ID, session.TemplateID, session.WorkoutKey, session.Date, setsJson,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrSessionExists
		}
		return err
	}

	return nil
}

func (r *Repo) Update(ctx context.Context, session *WorkoutSession) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", session.ID))

	setsJson, err := json.Marshal(session.Sets)
	if err != nil {
		return fmt.Errorf("marshal sets: %w", err)
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_session SET template_id = $1, date = $2, sets = $3, updated_at = now() WHERE id = $4;`,
		session.TemplateID, session.Date, setsJson, session.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM workout_session WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *Repo) FindByWorkoutKey(ctx context.Context, workoutKey string) (_ *WorkoutSession, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.find")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout_key", workoutKey))

	session := &WorkoutSession{}
	var setsJson []byte
	err = r.db.QueryRow(
		ctx,
		`SELECT id, template_id, workout_key, date, sets
			FROM workout_session
			WHERE workout_key = $1`,
		workoutKey,
	).Scan(&session.ID, &session.TemplateID, &session.WorkoutKey, &session.Date, &setsJson)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(setsJson, &session.Sets); err != nil {
		return nil, fmt.Errorf("unmarshal sets: %w", err)
	}

	return session, nil
}
