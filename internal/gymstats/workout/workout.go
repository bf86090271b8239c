package workout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidSetKey = errors.New("invalid set key token")

// Mode can be one of:
//   - reps (weighted or bodyweight repetitions)
//   - time (held/performed for a duration)
type Mode string

const (
	ModeReps Mode = "reps"
	ModeTime Mode = "time"
)

func (m Mode) IsValid() bool {
	return m == ModeReps || m == ModeTime
}

// Section is one part of a scheduled workout.
type Section string

const (
	SectionWarmup Section = "warmup"
	SectionMain   Section = "main"
	SectionCore   Section = "core"
)

var AllSections = []Section{SectionWarmup, SectionMain, SectionCore}

func (s Section) String() string {
	return string(s)
}

func (s Section) IsValid() bool {
	switch s {
	case SectionWarmup, SectionMain, SectionCore:
		return true
	default:
		return false
	}
}

// HasRestPhase tells if a logged set is followed by a rest countdown.
func (s Section) HasRestPhase() bool {
	return s == SectionMain
}

type SetDefinition struct {
	Reps     *int           `json:"reps,omitempty"`
	Duration *time.Duration `json:"duration,omitempty"`
	Weight   *float64       `json:"weight,omitempty"`
}

// ExerciseItem is one exercise slot of a workout template.
// TemplateExerciseID stays stable when the movement (and with it the item ID) is swapped.
type ExerciseItem struct {
	ID                 string          `json:"id"`
	TemplateExerciseID string          `json:"templateExerciseId"`
	MovementID         string          `json:"movementId"`
	Mode               Mode            `json:"mode"`
	Sets               []SetDefinition `json:"sets"`
	CycleID            string          `json:"cycleId,omitempty"`
	CycleOrder         int             `json:"cycleOrder,omitempty"`
	IsPerSide          bool            `json:"isPerSide"`
	Rest               *time.Duration  `json:"rest,omitempty"`
}

// StableID returns the identity used for cross-referencing progress of this slot.
func (e ExerciseItem) StableID() string {
	if e.TemplateExerciseID != "" {
		return e.TemplateExerciseID
	}
	return e.ID
}

// HasRound reports whether the exercise has its own set for the given round.
// Shorter members of a cycle are treated as already satisfied past their set count.
func (e ExerciseItem) HasRound(round int) bool {
	return round >= 0 && round < len(e.Sets)
}

// IsWeighted tells if a completed set of this item counts towards personal records.
func (e ExerciseItem) IsWeighted(v SetValue) bool {
	return e.Mode == ModeReps && v.Weight > 0
}

// DefaultValue is the template's own weight/reps for a round.
// Past the last defined set the last one is reused.
func (e ExerciseItem) DefaultValue(round int) SetValue {
	if len(e.Sets) == 0 {
		return SetValue{}
	}
	if round < 0 {
		round = 0
	}
	if round >= len(e.Sets) {
		round = len(e.Sets) - 1
	}
	def := e.Sets[round]
	var v SetValue
	if def.Weight != nil {
		v.Weight = *def.Weight
	}
	if def.Reps != nil {
		v.Reps = *def.Reps
	}
	return v
}

// SetDuration returns the configured duration for a timed round, or false if none is set.
func (e ExerciseItem) SetDuration(round int) (time.Duration, bool) {
	if !e.HasRound(round) {
		return 0, false
	}
	d := e.Sets[round].Duration
	if d == nil || *d <= 0 {
		return 0, false
	}
	return *d, true
}

type SetValue struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

// SetKey identifies one set of one exercise in a given round.
type SetKey struct {
	ExerciseItemID string `json:"exerciseItemId"`
	Round          int    `json:"round"`
}

const setKeySeparator = "#"

func NewSetKey(exerciseItemID string, round int) SetKey {
	return SetKey{ExerciseItemID: exerciseItemID, Round: round}
}

func (k SetKey) Token() string {
	return k.ExerciseItemID + setKeySeparator + strconv.Itoa(k.Round)
}

func (k SetKey) String() string {
	return k.Token()
}

// ParseSetKey is the inverse of SetKey.Token. Item IDs may contain the separator,
// so only the last one is significant.
func ParseSetKey(token string) (SetKey, error) {
	idx := strings.LastIndex(token, setKeySeparator)
	if idx <= 0 || idx == len(token)-1 {
		return SetKey{}, fmt.Errorf("%w: %q", ErrInvalidSetKey, token)
	}
	round, err := strconv.Atoi(token[idx+1:])
	if err != nil || round < 0 {
		return SetKey{}, fmt.Errorf("%w: %q", ErrInvalidSetKey, token)
	}
	return SetKey{ExerciseItemID: token[:idx], Round: round}, nil
}

type Template struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	WarmupItems    []ExerciseItem `json:"warmupItems"`
	Items          []ExerciseItem `json:"items"`
	AccessoryItems []ExerciseItem `json:"accessoryItems"`
}

// ItemsFor maps a section to the template's item list (core runs the accessory items).
func (t *Template) ItemsFor(section Section) []ExerciseItem {
	if t == nil {
		return nil
	}
	switch section {
	case SectionWarmup:
		return t.WarmupItems
	case SectionMain:
		return t.Items
	case SectionCore:
		return t.AccessoryItems
	default:
		return nil
	}
}

// SectionTokens lists every set key token of a section, in item/round order.
func SectionTokens(items []ExerciseItem) []string {
	var tokens []string
	for _, item := range items {
		for r := range item.Sets {
			tokens = append(tokens, NewSetKey(item.ID, r).Token())
		}
	}
	return tokens
}
