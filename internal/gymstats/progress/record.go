package progress

import (
	"fmt"
	"time"

	"github.com/2beens/gymrunner/internal/gymstats/workout"
)

// Record is the detailed progress of one round of one template exercise slot.
// It is keyed by the slot's stable identity, so it survives an exercise swap;
// ExerciseID says which concrete exercise the values belong to.
type Record struct {
	TemplateExerciseID string    `json:"templateExerciseId"`
	ExerciseID         string    `json:"exerciseId"`
	Round              int       `json:"round"`
	Weight             float64   `json:"weight"`
	Reps               int       `json:"reps"`
	Completed          bool      `json:"completed"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (r Record) Field() string {
	return RecordField(r.TemplateExerciseID, r.Round)
}

func (r Record) Value() workout.SetValue {
	return workout.SetValue{Weight: r.Weight, Reps: r.Reps}
}

func RecordField(templateExerciseID string, round int) string {
	return fmt.Sprintf("%s#%d", templateExerciseID, round)
}

// Index maps records by their field, for lookups.
func Index(records []Record) map[string]Record {
	idx := make(map[string]Record, len(records))
	for _, r := range records {
		idx[r.Field()] = r
	}
	return idx
}
