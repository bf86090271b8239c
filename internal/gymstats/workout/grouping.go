package workout

import "sort"

// ExerciseGroup is derived from the item list and never persisted.
// A cycle (superset) advances all of its exercises in lockstep, round by round.
type ExerciseGroup struct {
	ID          string         `json:"id"`
	IsCycle     bool           `json:"isCycle"`
	TotalRounds int            `json:"totalRounds"`
	Exercises   []ExerciseItem `json:"exercises"`
}

// IndexOf returns the position of an exercise item in the group, or -1.
func (g ExerciseGroup) IndexOf(itemID string) int {
	for i, ex := range g.Exercises {
		if ex.ID == itemID {
			return i
		}
	}
	return -1
}

// BuildGroups partitions the ordered items into execution groups.
// Items sharing a cycle ID form one group, sorted by cycle order (ties keep source order);
// items without one are singleton groups. Groups come out in the order their first member
// appears in the source list.
func BuildGroups(items []ExerciseItem) []ExerciseGroup {
	var groups []ExerciseGroup
	cycleIdx := make(map[string]int)

	for _, item := range items {
		if item.CycleID == "" {
			groups = append(groups, ExerciseGroup{
				ID:          item.ID,
				TotalRounds: len(item.Sets),
				Exercises:   []ExerciseItem{item},
			})
			continue
		}

		if i, ok := cycleIdx[item.CycleID]; ok {
			groups[i].Exercises = append(groups[i].Exercises, item)
			if len(item.Sets) > groups[i].TotalRounds {
				groups[i].TotalRounds = len(item.Sets)
			}
			continue
		}

		cycleIdx[item.CycleID] = len(groups)
		groups = append(groups, ExerciseGroup{
			ID:          item.CycleID,
			IsCycle:     true,
			TotalRounds: len(item.Sets),
			Exercises:   []ExerciseItem{item},
		})
	}

	for i := range groups {
		if !groups[i].IsCycle {
			continue
		}
		members := groups[i].Exercises
		sort.SliceStable(members, func(a, b int) bool {
			return members[a].CycleOrder < members[b].CycleOrder
		})
	}

	return groups
}

// FindGroup returns the index of the group with the given ID, or -1.
func FindGroup(groups []ExerciseGroup, groupID string) int {
	for i, g := range groups {
		if g.ID == groupID {
			return i
		}
	}
	return -1
}

// FindItem locates an exercise item by ID across all groups.
func FindItem(groups []ExerciseGroup, itemID string) (groupIdx, exerciseIdx int, ok bool) {
	for gi, g := range groups {
		if ei := g.IndexOf(itemID); ei >= 0 {
			return gi, ei, true
		}
	}
	return -1, -1, false
}
