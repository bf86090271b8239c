package records

import (
	"context"
	"errors"

	"github.com/2beens/gymrunner/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrRecordNotFound = errors.New("personal record not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Upsert replaces the movement's record.
func (r *Repo) Upsert(ctx context.Context, record PersonalRecord) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("movement_id", record.MovementID))

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO personal_record (movement_id, weight, reps, date)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (movement_id) DO UPDATE
			SET weight = EXCLUDED.weight, reps = EXCLUDED.reps, date = EXCLUDED.date;`,
		record.MovementID, record.Weight, record.Reps, record.Date,
	)
	return err
}

func (r *Repo) Get(ctx context.Context, movementID string) (_ *PersonalRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("movement_id", movementID))

	record := &PersonalRecord{}
	err = r.db.QueryRow(
		ctx,
		`SELECT movement_id, weight, reps, date FROM personal_record WHERE movement_id = $1`,
		movementID,
	).Scan(&record.MovementID, &record.Weight, &record.Reps, &record.Date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return record, nil
}

func (r *Repo) List(ctx context.Context) (_ []PersonalRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `SELECT movement_id, weight, reps, date FROM personal_record ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []PersonalRecord
	for rows.Next() {
		var record PersonalRecord
		if err := rows.Scan(&record.MovementID, &record.Weight, &record.Reps, &record.Date); err != nil {
			return nil, err
		}
		list = append(list, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
