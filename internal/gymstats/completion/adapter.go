package completion

import (
	"context"
	"fmt"
	"math"

	"github.com/2beens/gymrunner/internal/gymstats/workout"
	"github.com/2beens/gymrunner/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Store keeps the raw completion flags. Implementations must treat adding an existing
// token as a no-op.
type Store interface {
	Add(ctx context.Context, sectionKey string, tokens ...string) error
	Remove(ctx context.Context, sectionKey string, tokens ...string) error
	Members(ctx context.Context, sectionKey string) ([]string, error)
	Count(ctx context.Context, sectionKey string) (int, error)
	SetTotal(ctx context.Context, sectionKey string, total int) error
	// Total returns false when no total was registered for the section.
	Total(ctx context.Context, sectionKey string) (int, bool, error)
	Clear(ctx context.Context, sectionKey string) error
}

type Summary struct {
	TotalItems     int `json:"totalItems"`
	CompletedItems int `json:"completedItems"`
	Percentage     int `json:"percentage"`
}

func (s Summary) IsComplete() bool {
	return s.Percentage >= 100
}

// NewSummary derives the percentage; an empty section is vacuously complete.
func NewSummary(total, completed int) Summary {
	if completed > total {
		completed = total
	}
	if total <= 0 {
		return Summary{TotalItems: 0, CompletedItems: 0, Percentage: 100}
	}
	return Summary{
		TotalItems:     total,
		CompletedItems: completed,
		Percentage:     int(math.Round(100 * float64(completed) / float64(total))),
	}
}

// SectionKey identifies one section of one scheduled workout occurrence.
func SectionKey(workoutKey string, section workout.Section) string {
	return workoutKey + "|" + section.String()
}

type Adapter struct {
	store Store
}

func NewAdapter(store Store) *Adapter {
	return &Adapter{
		store: store,
	}
}

// RegisterSection records how many set keys the section holds.
func (a *Adapter) RegisterSection(ctx context.Context, sectionKey string, totalItems int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "completion.register")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("section_key", sectionKey))
	span.SetAttributes(attribute.Int("total", totalItems))

	if err := a.store.SetTotal(ctx, sectionKey, totalItems); err != nil {
		return fmt.Errorf("set total: %w", err)
	}
	return nil
}

// EnsureSection registers the total only if the section has none yet.
func (a *Adapter) EnsureSection(ctx context.Context, sectionKey string, totalItems int) error {
	_, found, err := a.store.Total(ctx, sectionKey)
	if err != nil {
		return fmt.Errorf("get total: %w", err)
	}
	if found {
		return nil
	}
	return a.RegisterSection(ctx, sectionKey, totalItems)
}

// MarkComplete flags one set key token as done. Marking twice is a no-op.
func (a *Adapter) MarkComplete(ctx context.Context, sectionKey string, tokens ...string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "completion.mark")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("section_key", sectionKey))
	span.SetAttributes(attribute.Int("tokens", len(tokens)))

	if len(tokens) == 0 {
		return nil
	}
	if err := a.store.Add(ctx, sectionKey, tokens...); err != nil {
		return fmt.Errorf("add completion tokens: %w", err)
	}
	return nil
}

// Unmark drops completion flags, used when set keys are re-keyed after an exercise swap.
func (a *Adapter) Unmark(ctx context.Context, sectionKey string, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	if err := a.store.Remove(ctx, sectionKey, tokens...); err != nil {
		return fmt.Errorf("remove completion tokens: %w", err)
	}
	return nil
}

func (a *Adapter) Completed(ctx context.Context, sectionKey string) ([]string, error) {
	tokens, err := a.store.Members(ctx, sectionKey)
	if err != nil {
		return nil, fmt.Errorf("list completion tokens: %w", err)
	}
	return tokens, nil
}

func (a *Adapter) GetCompletion(ctx context.Context, sectionKey string) (_ Summary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "completion.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("section_key", sectionKey))

	total, _, err := a.store.Total(ctx, sectionKey)
	if err != nil {
		return Summary{}, fmt.Errorf("get total: %w", err)
	}
	count, err := a.store.Count(ctx, sectionKey)
	if err != nil {
		return Summary{}, fmt.Errorf("count completed: %w", err)
	}
	return NewSummary(total, count), nil
}

// Reset clears the section's completion flags; the registered total stays. Idempotent.
func (a *Adapter) Reset(ctx context.Context, sectionKey string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "completion.reset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("section_key", sectionKey))

	if err := a.store.Clear(ctx, sectionKey); err != nil {
		return fmt.Errorf("clear completion: %w", err)
	}
	return nil
}

// IsWorkoutComplete reports whether warmup, main and core all sit at 100%.
func (a *Adapter) IsWorkoutComplete(ctx context.Context, workoutKey string) (bool, error) {
	for _, section := range workout.AllSections {
		summary, err := a.GetCompletion(ctx, SectionKey(workoutKey, section))
		if err != nil {
			return false, fmt.Errorf("section %s: %w", section, err)
		}
		if !summary.IsComplete() {
			return false, nil
		}
	}
	return true, nil
}
