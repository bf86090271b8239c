package execution

import (
	"github.com/2beens/gymrunner/internal/gymstats/progress"
	"github.com/2beens/gymrunner/internal/gymstats/sessions"
	"github.com/2beens/gymrunner/internal/gymstats/workout"
)

// ValueSource tells which source a resolved set value came from.
type ValueSource int

const (
	SourceTemplate ValueSource = iota
	SourceSession
	SourceProgress
	SourceEdit
)

func (s ValueSource) String() string {
	switch s {
	case SourceEdit:
		return "edit"
	case SourceProgress:
		return "progress"
	case SourceSession:
		return "session"
	default:
		return "template"
	}
}

// Resolver answers "what weight/reps does this set show" from, in order:
//  1. values edited in this session (only when they differ from the template default)
//  2. detailed progress records, matched by the template slot and only trusted
//     when they were written for the same concrete exercise
//  3. the persisted workout session
//  4. the template default
type Resolver struct {
	section  workout.Section
	edits    map[workout.SetKey]workout.SetValue
	progress map[string]progress.Record
	session  *sessions.WorkoutSession
}

func NewResolver(
	section workout.Section,
	edits map[workout.SetKey]workout.SetValue,
	progressRecords map[string]progress.Record,
	session *sessions.WorkoutSession,
) Resolver {
	return Resolver{
		section:  section,
		edits:    edits,
		progress: progressRecords,
		session:  session,
	}
}

func (r Resolver) Resolve(item workout.ExerciseItem, round int) workout.SetValue {
	v, _ := r.ResolveWithSource(item, round)
	return v
}

func (r Resolver) ResolveWithSource(item workout.ExerciseItem, round int) (workout.SetValue, ValueSource) {
	def := item.DefaultValue(round)

	if edit, ok := r.edits[workout.NewSetKey(item.ID, round)]; ok && edit != def {
		return edit, SourceEdit
	}

	if rec, ok := r.progress[progress.RecordField(item.StableID(), round)]; ok && rec.ExerciseID == item.ID {
		return rec.Value(), SourceProgress
	}

	if rec, ok := r.session.Find(r.section, item.ID, round); ok {
		return workout.SetValue{Weight: rec.Weight, Reps: rec.Reps}, SourceSession
	}

	return def, SourceTemplate
}
