package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2beens/gymrunner/internal/gymstats/workout"
	"github.com/2beens/gymrunner/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrTemplateNotFound = errors.New("workout template not found")
	ErrMovementNotFound = errors.New("movement not found")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) GetTemplate(ctx context.Context, id string) (_ *workout.Template, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tmpl := &workout.Template{}
	var warmupJson, itemsJson, accessoryJson []byte
	err = r.db.QueryRow(
		ctx,
		`SELECT id, name, warmup_items, items, accessory_items
			FROM workout_template
			WHERE id = $1`,
		id,
	).Scan(&tmpl.ID, &tmpl.Name, &warmupJson, &itemsJson, &accessoryJson)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(warmupJson, &tmpl.WarmupItems); err != nil {
		return nil, fmt.Errorf("unmarshal warmup items: %w", err)
	}
	if err := json.Unmarshal(itemsJson, &tmpl.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(accessoryJson, &tmpl.AccessoryItems); err != nil {
		return nil, fmt.Errorf("unmarshal accessory items: %w", err)
	}

	return tmpl, nil
}

// SaveTemplate inserts the template, or replaces it if it already exists.
func (r *Repo) SaveTemplate(ctx context.Context, tmpl *workout.Template) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", tmpl.ID))

	warmupJson, err := marshalItems(tmpl.WarmupItems)
	if err != nil {
		return fmt.Errorf("marshal warmup items: %w", err)
	}
	itemsJson, err := marshalItems(tmpl.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	accessoryJson, err := marshalItems(tmpl.AccessoryItems)
	if err != nil {
		return fmt.Errorf("marshal accessory items: %w", err)
	}

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO workout_template (id, name, warmup_items, items, accessory_items)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
				warmup_items = EXCLUDED.warmup_items,
				items = EXCLUDED.items,
				accessory_items = EXCLUDED.accessory_items;`,
		tmpl.ID, tmpl.Name, warmupJson, itemsJson, accessoryJson,
	)
	return err
}

func (r *Repo) MovementName(ctx context.Context, movementID string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.movementname")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("movement_id", movementID))

	var name string
	err = r.db.QueryRow(ctx, `SELECT name FROM movement WHERE id = $1`, movementID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrMovementNotFound
		}
		return "", err
	}
	return name, nil
}

func (r *Repo) SaveMovement(ctx context.Context, movementID, name string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.savemovement")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO movement (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name;`,
		movementID, name,
	)
	return err
}

func marshalItems(items []workout.ExerciseItem) ([]byte, error) {
	if items == nil {
		items = []workout.ExerciseItem{}
	}
	return json.Marshal(items)
}
