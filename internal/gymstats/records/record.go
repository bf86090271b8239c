package records

import "time"

// PersonalRecord is the best known weighted set for a movement.
type PersonalRecord struct {
	MovementID string    `json:"movementId"`
	Weight     float64   `json:"weight"`
	Reps       int       `json:"reps"`
	Date       time.Time `json:"date"`
}

// IsNew tells if the record was set within a window starting at windowStart.
func IsNew(record PersonalRecord, windowStart time.Time) bool {
	return !record.Date.Before(windowStart)
}
