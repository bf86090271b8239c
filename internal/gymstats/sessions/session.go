package sessions

import (
	"time"

	"github.com/2beens/gymrunner/internal/gymstats/workout"
)

// SetRecord is one logged (or edited but not yet completed) set of a workout session.
type SetRecord struct {
	Section     workout.Section `json:"section"`
	ExerciseID  string          `json:"exerciseId"`
	SetIndex    int             `json:"setIndex"`
	Weight      float64         `json:"weight"`
	Reps        int             `json:"reps"`
	IsCompleted bool            `json:"isCompleted"`
}

func (r SetRecord) Key() workout.SetKey {
	return workout.NewSetKey(r.ExerciseID, r.SetIndex)
}

// WorkoutSession is the persisted log of one scheduled workout occurrence.
// There is at most one session per WorkoutKey.
type WorkoutSession struct {
	ID         string      `json:"id"`
	TemplateID string      `json:"templateId"`
	WorkoutKey string      `json:"workoutKey"`
	Date       time.Time   `json:"date"`
	Sets       []SetRecord `json:"sets"`
}

func (s *WorkoutSession) CompletedCount() int {
	if s == nil {
		return 0
	}
	count := 0
	for _, r := range s.Sets {
		if r.IsCompleted {
			count++
		}
	}
	return count
}

// Find returns the record for the given set of the given section.
func (s *WorkoutSession) Find(section workout.Section, exerciseID string, setIndex int) (SetRecord, bool) {
	if s == nil {
		return SetRecord{}, false
	}
	for _, r := range s.Sets {
		if r.Section == section && r.ExerciseID == exerciseID && r.SetIndex == setIndex {
			return r, true
		}
	}
	return SetRecord{}, false
}

// SectionRecords returns the records of one section, in stored order.
func (s *WorkoutSession) SectionRecords(section workout.Section) []SetRecord {
	if s == nil {
		return nil
	}
	var records []SetRecord
	for _, r := range s.Sets {
		if r.Section == section {
			records = append(records, r)
		}
	}
	return records
}

func (s *WorkoutSession) clone() *WorkoutSession {
	c := *s
	c.Sets = append([]SetRecord(nil), s.Sets...)
	return &c
}
