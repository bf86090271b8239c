package workout

// IsRoundComplete tells if every exercise of the group that has a set in this round
// has it completed. Exercises without their own set in the round count as satisfied.
func IsRoundComplete(group ExerciseGroup, round int, completed map[SetKey]bool) bool {
	for _, ex := range group.Exercises {
		if !ex.HasRound(round) {
			continue
		}
		if !completed[NewSetKey(ex.ID, round)] {
			return false
		}
	}
	return true
}

// CompletedRounds counts the contiguous prefix of fully completed rounds.
// A later round never counts while an earlier one in the same group is still open.
func CompletedRounds(group ExerciseGroup, completed map[SetKey]bool) int {
	count := 0
	for r := 0; r < group.TotalRounds; r++ {
		if !IsRoundComplete(group, r, completed) {
			break
		}
		count++
	}
	return count
}

// IsGroupComplete reports completion of a group given its completed round count.
func IsGroupComplete(group ExerciseGroup, completedRounds int) bool {
	return completedRounds >= group.TotalRounds
}

// NextIncompleteGroup searches for the next group that still has rounds to do,
// scanning forward from fromIndex first and then wrapping around to the groups before it.
// This is the one search used both to advance and to preview what comes next.
func NextIncompleteGroup(groups []ExerciseGroup, rounds map[string]int, fromIndex int) (int, bool) {
	n := len(groups)
	if n == 0 {
		return -1, false
	}
	if fromIndex < -1 || fromIndex >= n {
		fromIndex = -1
	}

	for i := fromIndex + 1; i < n; i++ {
		if !IsGroupComplete(groups[i], rounds[groups[i].ID]) {
			return i, true
		}
	}
	for i := 0; i < fromIndex; i++ {
		if !IsGroupComplete(groups[i], rounds[groups[i].ID]) {
			return i, true
		}
	}
	return -1, false
}

// NextPendingExercise finds, within one round of a group, the next exercise that still owes
// its set, starting after position `after` and wrapping within the group.
func NextPendingExercise(group ExerciseGroup, round, after int, completed map[SetKey]bool) (int, bool) {
	n := len(group.Exercises)
	for step := 1; step <= n; step++ {
		i := (after + step) % n
		if i < 0 {
			i += n
		}
		ex := group.Exercises[i]
		if ex.HasRound(round) && !completed[NewSetKey(ex.ID, round)] {
			return i, true
		}
	}
	return -1, false
}

// FirstPendingExercise is NextPendingExercise starting from the top of the group.
func FirstPendingExercise(group ExerciseGroup, round int, completed map[SetKey]bool) (int, bool) {
	return NextPendingExercise(group, round, -1, completed)
}
