package execution

import (
	"time"

	"github.com/2beens/gymrunner/internal/gymstats/completion"
	"github.com/2beens/gymrunner/internal/gymstats/workout"
)

type Status string

const (
	StatusNoGroupActive   Status = "no_group_active"
	StatusGroupActive     Status = "group_active"
	StatusTimerPending    Status = "timer_pending"
	StatusSectionComplete Status = "section_complete"
)

// Phase of a pending timer.
type Phase string

const (
	PhaseNone     Phase = ""
	PhaseExercise Phase = "exercise"
	PhaseRest     Phase = "rest"
)

// Snapshot is a read-only view of an engine, for rendering.
type Snapshot struct {
	WorkoutKey string          `json:"workoutKey"`
	TemplateID string          `json:"templateId"`
	Section    workout.Section `json:"section"`
	Status     Status          `json:"status"`
	Phase      Phase           `json:"phase,omitempty"`
	// Locked is set once a set is logged in the current group; no other group can be selected then.
	Locked bool `json:"locked"`

	ActiveGroupID      string `json:"activeGroupId,omitempty"`
	ActiveExerciseID   string `json:"activeExerciseId,omitempty"`
	ActiveExerciseName string `json:"activeExerciseName,omitempty"`
	ActiveRound        int    `json:"activeRound"`

	TimerEndsAt *time.Time `json:"timerEndsAt,omitempty"`
	// UpNext names the exercise after the rest, if it differs from the one just done.
	UpNext string `json:"upNext,omitempty"`

	Groups []GroupState `json:"groups"`
	// CompletedGroups holds completed group IDs, in the order they were completed.
	CompletedGroups []string           `json:"completedGroups"`
	Completion      completion.Summary `json:"completion"`
	WeightUnit      string             `json:"weightUnit"`
}

type GroupState struct {
	ID              string          `json:"id"`
	IsCycle         bool            `json:"isCycle"`
	TotalRounds     int             `json:"totalRounds"`
	CompletedRounds int             `json:"completedRounds"`
	Complete        bool            `json:"complete"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	Exercises       []ExerciseState `json:"exercises"`
}

type ExerciseState struct {
	ItemID     string       `json:"itemId"`
	MovementID string       `json:"movementId"`
	Name       string       `json:"name"`
	Mode       workout.Mode `json:"mode"`
	IsPerSide  bool         `json:"isPerSide"`
	Sets       []SetState   `json:"sets"`
}

type SetState struct {
	Key           string           `json:"key"`
	Round         int              `json:"round"`
	Value         workout.SetValue `json:"value"`
	WeightDisplay string           `json:"weightDisplay"`
	Completed     bool             `json:"completed"`
}

// Group returns the state of a group by ID.
func (s Snapshot) Group(groupID string) (GroupState, bool) {
	for _, g := range s.Groups {
		if g.ID == groupID {
			return g, true
		}
	}
	return GroupState{}, false
}

// Set returns the state of one set.
func (s Snapshot) Set(key workout.SetKey) (SetState, bool) {
	token := key.Token()
	for _, g := range s.Groups {
		for _, ex := range g.Exercises {
			for _, set := range ex.Sets {
				if set.Key == token {
					return set, true
				}
			}
		}
	}
	return SetState{}, false
}
