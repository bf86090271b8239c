package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/2beens/gymrunner/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// Repo tracks whether a scheduled workout occurrence has been completed.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) SetCompleted(ctx context.Context, workoutKey string, completed bool, at time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.schedule.setcompleted")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout_key", workoutKey))
	span.SetAttributes(attribute.Bool("completed", completed))

	var completedAt *time.Time
	if completed {
		completedAt = &at
	}

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO scheduled_workout (workout_key, completed, completed_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (workout_key) DO UPDATE
			SET completed = EXCLUDED.completed, completed_at = EXCLUDED.completed_at;`,
		workoutKey, completed, completedAt,
	)
	return err
}

// IsCompleted reports the occurrence's completion; unknown occurrences are not completed.
func (r *Repo) IsCompleted(ctx context.Context, workoutKey string) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.schedule.iscompleted")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout_key", workoutKey))

	var completed bool
	err = r.db.QueryRow(
		ctx,
		`SELECT completed FROM scheduled_workout WHERE workout_key = $1`,
		workoutKey,
	).Scan(&completed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return completed, nil
}
