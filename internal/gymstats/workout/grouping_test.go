package workout_test

import (
	"testing"

	"github.com/2beens/gymrunner/internal/gymstats/workout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int {
	return &i
}

func floatPtr(f float64) *float64 {
	return &f
}

func sets(n int, weight float64, reps int) []workout.SetDefinition {
	defs := make([]workout.SetDefinition, n)
	for i := range defs {
		defs[i] = workout.SetDefinition{Weight: floatPtr(weight), Reps: intPtr(reps)}
	}
	return defs
}

func TestBuildGroups_Empty(t *testing.T) {
	assert.Empty(t, workout.BuildGroups(nil))
}

func TestBuildGroups_StandaloneAndCycles(t *testing.T) {
	items := []workout.ExerciseItem{
		{ID: "squat", Sets: sets(3, 100, 5)},
		{ID: "pullup", CycleID: "c1", CycleOrder: 1, Sets: sets(2, 0, 8)},
		{ID: "bench", CycleID: "c1", CycleOrder: 0, Sets: sets(3, 80, 8)},
		{ID: "plank", Mode: workout.ModeTime, Sets: sets(1, 0, 0)},
		{ID: "curl", CycleID: "c1", CycleOrder: 1, Sets: sets(1, 15, 12)},
	}

	groups := workout.BuildGroups(items)
	require.Len(t, groups, 3)

	assert.Equal(t, "squat", groups[0].ID)
	assert.False(t, groups[0].IsCycle)
	assert.Equal(t, 3, groups[0].TotalRounds)

	// cycle emitted at the position of its first member, sorted by cycle order,
	// ties (pullup, curl) keep source order
	assert.Equal(t, "c1", groups[1].ID)
	assert.True(t, groups[1].IsCycle)
	assert.Equal(t, 3, groups[1].TotalRounds)
	require.Len(t, groups[1].Exercises, 3)
	assert.Equal(t, "bench", groups[1].Exercises[0].ID)
	assert.Equal(t, "pullup", groups[1].Exercises[1].ID)
	assert.Equal(t, "curl", groups[1].Exercises[2].ID)

	assert.Equal(t, "plank", groups[2].ID)
	assert.Equal(t, 1, groups[2].TotalRounds)
}

func TestBuildGroups_DoesNotMutateInput(t *testing.T) {
	items := []workout.ExerciseItem{
		{ID: "b", CycleID: "c", CycleOrder: 1, Sets: sets(1, 0, 1)},
		{ID: "a", CycleID: "c", CycleOrder: 0, Sets: sets(1, 0, 1)},
	}
	groups := workout.BuildGroups(items)
	require.Len(t, groups, 1)
	assert.Equal(t, "a", groups[0].Exercises[0].ID)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
}

func TestFindItem(t *testing.T) {
	groups := workout.BuildGroups([]workout.ExerciseItem{
		{ID: "x", Sets: sets(1, 0, 1)},
		{ID: "y", CycleID: "c", Sets: sets(1, 0, 1)},
		{ID: "z", CycleID: "c", CycleOrder: 1, Sets: sets(1, 0, 1)},
	})

	gi, ei, ok := workout.FindItem(groups, "z")
	require.True(t, ok)
	assert.Equal(t, 1, gi)
	assert.Equal(t, 1, ei)

	_, _, ok = workout.FindItem(groups, "missing")
	assert.False(t, ok)
	assert.Equal(t, -1, workout.FindGroup(groups, "missing"))
	assert.Equal(t, 1, workout.FindGroup(groups, "c"))
}

func TestSetKey_TokenRoundTrip(t *testing.T) {
	key := workout.NewSetKey("item#with#hashes", 4)
	parsed, err := workout.ParseSetKey(key.Token())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	for _, bad := range []string{"", "#1", "abc", "abc#", "abc#-1", "abc#x"} {
		_, err := workout.ParseSetKey(bad)
		assert.ErrorIs(t, err, workout.ErrInvalidSetKey, bad)
	}
}

func TestExerciseItem_DefaultValue(t *testing.T) {
	item := workout.ExerciseItem{
		ID: "row",
		Sets: []workout.SetDefinition{
			{Weight: floatPtr(60), Reps: intPtr(10)},
			{Weight: floatPtr(65), Reps: intPtr(8)},
		},
	}
	assert.Equal(t, workout.SetValue{Weight: 60, Reps: 10}, item.DefaultValue(0))
	assert.Equal(t, workout.SetValue{Weight: 65, Reps: 8}, item.DefaultValue(1))
	assert.Equal(t, workout.SetValue{Weight: 65, Reps: 8}, item.DefaultValue(7))
	assert.Equal(t, workout.SetValue{}, workout.ExerciseItem{}.DefaultValue(0))

	assert.True(t, item.HasRound(1))
	assert.False(t, item.HasRound(2))
	assert.False(t, item.HasRound(-1))
}

func TestTemplate_ItemsFor(t *testing.T) {
	tmpl := &workout.Template{
		WarmupItems:    []workout.ExerciseItem{{ID: "w"}},
		Items:          []workout.ExerciseItem{{ID: "m"}},
		AccessoryItems: []workout.ExerciseItem{{ID: "c"}},
	}
	assert.Equal(t, "w", tmpl.ItemsFor(workout.SectionWarmup)[0].ID)
	assert.Equal(t, "m", tmpl.ItemsFor(workout.SectionMain)[0].ID)
	assert.Equal(t, "c", tmpl.ItemsFor(workout.SectionCore)[0].ID)
	assert.Nil(t, tmpl.ItemsFor("other"))

	var nilTmpl *workout.Template
	assert.Nil(t, nilTmpl.ItemsFor(workout.SectionMain))
}
