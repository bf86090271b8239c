package workout

import "time"

// SetCompleted is published every time a set gets logged.
type SetCompleted struct {
	WorkoutKey  string    `json:"workoutKey"`
	Section     Section   `json:"section"`
	Key         SetKey    `json:"key"`
	MovementID  string    `json:"movementId"`
	Mode        Mode      `json:"mode"`
	Value       SetValue  `json:"value"`
	CompletedAt time.Time `json:"completedAt"`
}

// IsWeighted tells if the set is a weighted reps set, the kind personal records are built from.
func (e SetCompleted) IsWeighted() bool {
	return e.Mode == ModeReps && e.Value.Weight > 0
}
