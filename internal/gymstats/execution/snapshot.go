package execution

import (
	"context"
	"sort"

	"github.com/2beens/gymrunner/internal/gymstats/completion"
	"github.com/2beens/gymrunner/internal/gymstats/workout"

	log "github.com/sirupsen/logrus"
)

// State returns a snapshot of the engine, with the values every set currently shows.
func (e *Engine) State(ctx context.Context) Snapshot {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	snap := Snapshot{
		WorkoutKey:      e.workoutKey,
		TemplateID:      e.templateID,
		Section:         e.section,
		Status:          e.status,
		Phase:           e.phase,
		Locked:          e.locked,
		UpNext:          e.upNext,
		Groups:          make([]GroupState, 0, len(e.groups)),
		CompletedGroups: e.completedGroupIDs(),
		WeightUnit:      e.deps.Units.Label(),
	}

	if item, round, ok := e.activeItem(); ok && e.status != StatusSectionComplete {
		snap.ActiveGroupID = e.groups[e.activeGroup].ID
		snap.ActiveExerciseID = item.ID
		snap.ActiveExerciseName = e.deps.Library.Name(ctx, item.MovementID)
		snap.ActiveRound = round
	}
	if phase, endsAt, ok := e.timers.Pending(); ok && phase == e.phase {
		snap.TimerEndsAt = &endsAt
	}

	res := e.resolver()
	for _, g := range e.groups {
		gs := GroupState{
			ID:              g.ID,
			IsCycle:         g.IsCycle,
			TotalRounds:     g.TotalRounds,
			CompletedRounds: e.rounds[g.ID],
			Complete:        workout.IsGroupComplete(g, e.rounds[g.ID]),
			Exercises:       make([]ExerciseState, 0, len(g.Exercises)),
		}
		if at, ok := e.completedAt[g.ID]; ok {
			at := at
			gs.CompletedAt = &at
		}
		for _, ex := range g.Exercises {
			es := ExerciseState{
				ItemID:     ex.ID,
				MovementID: ex.MovementID,
				Name:       e.deps.Library.Name(ctx, ex.MovementID),
				Mode:       ex.Mode,
				IsPerSide:  ex.IsPerSide,
				Sets:       make([]SetState, 0, len(ex.Sets)),
			}
			for r := range ex.Sets {
				key := workout.NewSetKey(ex.ID, r)
				value := res.Resolve(ex, r)
				es.Sets = append(es.Sets, SetState{
					Key:           key.Token(),
					Round:         r,
					Value:         value,
					WeightDisplay: e.deps.Units.FormatWeight(value.Weight),
					Completed:     e.completed[key],
				})
			}
			gs.Exercises = append(gs.Exercises, es)
		}
		snap.Groups = append(snap.Groups, gs)
	}

	summary, err := e.deps.Completion.GetCompletion(ctx, e.sectionKey)
	if err != nil {
		log.Warnf("engine [%s]: get completion: %s", e.sectionKey, err)
		summary = completion.NewSummary(len(workout.SectionTokens(e.items)), len(e.completed))
	}
	snap.Completion = summary

	return snap
}

// completedGroupIDs orders completed groups by completion time, list order breaking ties.
func (e *Engine) completedGroupIDs() []string {
	type done struct {
		idx int
		id  string
	}
	var completed []done
	for gi, g := range e.groups {
		if _, ok := e.completedAt[g.ID]; ok && workout.IsGroupComplete(g, e.rounds[g.ID]) {
			completed = append(completed, done{idx: gi, id: g.ID})
		}
	}
	sort.SliceStable(completed, func(a, b int) bool {
		return e.completedAt[completed[a].id].Before(e.completedAt[completed[b].id])
	})

	ids := make([]string, 0, len(completed))
	for _, d := range completed {
		ids = append(ids, d.id)
	}
	return ids
}
