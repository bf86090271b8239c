//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/2beens/gymrunner/internal/gymstats/execution"
	"github.com/2beens/gymrunner/internal/gymstats/records"
	"github.com/2beens/gymrunner/internal/gymstats/workout"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

const testTemplateJson = `{
	"id": "%s",
	"name": "%s",
	"warmupItems": [{"id": "jacks", "movementId": "jumping-jacks", "mode": "reps", "sets": [{"reps": 30}]}],
	"items": [{"id": "bench", "movementId": "bench-press", "mode": "reps", "sets": [{"reps": 8, "weight": 80}, {"reps": 8, "weight": 80}]}],
	"accessoryItems": [{"id": "plank", "movementId": "plank", "mode": "time", "sets": [{"duration": 45000000000}]}]
}`

func (s *IntegrationTestSuite) doRequest(ctx context.Context, method, path, body string) (int, []byte) {
	var reqBody io.Reader
	if body != "" {
		reqBody = bytes.NewBufferString(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)
	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) sectionState(ctx context.Context, method, path, body string) execution.Snapshot {
	status, respBytes := s.doRequest(ctx, method, path, body)
	require.Equal(s.T(), http.StatusOK, status, string(respBytes))
	var state execution.Snapshot
	require.NoError(s.T(), json.Unmarshal(respBytes, &state))
	return state
}

func (s *IntegrationTestSuite) saveTestTemplate(ctx context.Context) string {
	templateID := "it-" + gofakeit.UUID()
	status, respBytes := s.doRequest(ctx, "PUT", "/movements/bench-press", `{"name":"Bench Press"}`)
	require.Equal(s.T(), http.StatusOK, status, string(respBytes))

	status, respBytes = s.doRequest(ctx, "PUT", "/templates", fmt.Sprintf(testTemplateJson, templateID, gofakeit.HipsterWord()))
	require.Equal(s.T(), http.StatusCreated, status, string(respBytes))
	return templateID
}

func (s *IntegrationTestSuite) TestWorkoutFlow() {
	ctx := context.Background()
	t := s.T()

	templateID := s.saveTestTemplate(ctx)
	workoutKey := time.Now().Format("2006-01-02") + "-" + templateID
	mainPath := "/workouts/" + workoutKey + "/sections/main"
	openBody := fmt.Sprintf(`{"templateId":"%s"}`, templateID)

	state := s.sectionState(ctx, "POST", mainPath, openBody)
	require.Equal(t, execution.StatusNoGroupActive, state.Status)
	require.Len(t, state.Groups, 1)

	state = s.sectionState(ctx, "POST", mainPath+"/select", `{"groupId":"bench"}`)
	require.Equal(t, "Bench Press", state.ActiveExerciseName)

	s.sectionState(ctx, "PUT", mainPath+"/sets/bench%230", `{"weight":"82,5","reps":"8"}`)
	state = s.sectionState(ctx, "POST", mainPath+"/start", "")
	require.Equal(t, execution.PhaseRest, state.Phase)

	// the set is in postgres once the transition returns
	var sessionsCount int
	require.NoError(t, s.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM workout_session WHERE workout_key = $1", workoutKey,
	).Scan(&sessionsCount))
	require.Equal(t, 1, sessionsCount)

	var pr records.PersonalRecord
	require.NoError(t, s.DB.QueryRowContext(ctx,
		"SELECT movement_id, weight, reps FROM personal_record WHERE movement_id = $1", "bench-press",
	).Scan(&pr.MovementID, &pr.Weight, &pr.Reps))
	require.Equal(t, 82.5, pr.Weight)
	require.Equal(t, 8, pr.Reps)

	// closing and reopening resumes from the stores
	status, _ := s.doRequest(ctx, "DELETE", mainPath, "")
	require.Equal(t, http.StatusOK, status)
	state = s.sectionState(ctx, "POST", mainPath, openBody)
	require.Equal(t, "bench", state.ActiveGroupID)
	require.Equal(t, 1, state.ActiveRound)
	require.Equal(t, 50, state.Completion.Percentage)

	for _, section := range []workout.Section{workout.SectionWarmup, workout.SectionMain, workout.SectionCore} {
		path := "/workouts/" + workoutKey + "/sections/" + section.String()
		s.sectionState(ctx, "POST", path, openBody)
		state = s.sectionState(ctx, "POST", path+"/complete-all", "")
		require.Equal(t, execution.StatusSectionComplete, state.Status)
	}

	var completed bool
	require.NoError(t, s.DB.QueryRowContext(ctx,
		"SELECT completed FROM scheduled_workout WHERE workout_key = $1", workoutKey,
	).Scan(&completed))
	require.True(t, completed)

	status, respBytes := s.doRequest(ctx, "GET", "/workouts/"+workoutKey+"/completion", "")
	require.Equal(t, http.StatusOK, status)
	var wc execution.WorkoutCompletion
	require.NoError(t, json.Unmarshal(respBytes, &wc))
	require.True(t, wc.Complete)

	// a reset reverts the occurrence
	state = s.sectionState(ctx, "POST", mainPath+"/reset", "")
	require.Equal(t, 0, state.Completion.Percentage)
	require.NoError(t, s.DB.QueryRowContext(ctx,
		"SELECT completed FROM scheduled_workout WHERE workout_key = $1", workoutKey,
	).Scan(&completed))
	require.False(t, completed)
}

func (s *IntegrationTestSuite) TestOpenUnknownTemplate() {
	status, _ := s.doRequest(context.Background(), "POST", "/workouts/w-unknown/sections/main", `{"templateId":"does-not-exist"}`)
	s.Equal(http.StatusNotFound, status)
}
