package execution

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/gymrunner/internal/gymstats/templates"
	"github.com/2beens/gymrunner/internal/gymstats/workout"
	"github.com/2beens/gymrunner/internal/telemetry/tracing"
	"github.com/2beens/gymrunner/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type OpenRequest struct {
	TemplateID string `json:"templateId"`
	// Date is optional, YYYY-MM-DD
	Date string `json:"date,omitempty"`
}

type SelectRequest struct {
	GroupID string `json:"groupId"`
}

// EditSetRequest carries the values as typed in; empty fields are left as they are.
type EditSetRequest struct {
	Weight string `json:"weight"`
	Reps   string `json:"reps"`
}

type SwapRequest struct {
	OldItemID string               `json:"oldItemId"`
	Item      workout.ExerciseItem `json:"item"`
}

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{
		manager: manager,
	}
}

func (handler *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.execution.open")
	defer span.End()

	workoutKey, section, ok := pathParams(w, r)
	if !ok {
		return
	}

	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("open section, unmarshal json params: %s", err)
		http.Error(w, "invalid open request", http.StatusBadRequest)
		return
	}
	if req.TemplateID == "" {
		http.Error(w, "error, template id empty", http.StatusBadRequest)
		return
	}

	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			http.Error(w, "error, invalid date", http.StatusBadRequest)
			return
		}
		date = parsed
	}

	engine, err := handler.manager.Open(ctx, OpenParams{
		WorkoutKey: workoutKey,
		TemplateID: req.TemplateID,
		Section:    section,
		Date:       date,
	})
	if err != nil {
		log.Errorf("open section [%s/%s]: %s", workoutKey, section, err)
		writeEngineError(w, err)
		return
	}

	writeState(ctx, w, engine)
}

func (handler *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.execution.state")
	defer span.End()

	engine, ok := handler.engine(w, r)
	if !ok {
		return
	}
	writeState(ctx, w, engine)
}

func (handler *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.execution.select")
	defer span.End()

	engine, ok := handler.engine(w, r)
	if !ok {
		return
	}

	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupID == "" {
		http.Error(w, "error, group id missing", http.StatusBadRequest)
		return
	}

	err := engine.Select(ctx, req.GroupID)
	if err != nil {
		log.Debugf("select group [%s]: %s", req.GroupID, err)
	}
	writeResult(ctx, w, engine, err)
}

func (handler *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	handler.runAction(w, r, "handler.execution.start", (*Engine).Start)
}

func (handler *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	handler.runAction(w, r, "handler.execution.complete", (*Engine).Complete)
}

func (handler *Handler) HandleSkipRest(w http.ResponseWriter, r *http.Request) {
	handler.runAction(w, r, "handler.execution.skiprest", (*Engine).SkipRest)
}

func (handler *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	handler.runAction(w, r, "handler.execution.reset", (*Engine).Reset)
}

func (handler *Handler) HandleCompleteAll(w http.ResponseWriter, r *http.Request) {
	handler.runAction(w, r, "handler.execution.completeall", (*Engine).CompleteAll)
}

func (handler *Handler) HandleEditSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.execution.editset")
	defer span.End()

	engine, ok := handler.engine(w, r)
	if !ok {
		return
	}

	key, err := workout.ParseSetKey(mux.Vars(r)["setKey"])
	if err != nil {
		http.Error(w, "error, invalid set key", http.StatusBadRequest)
		return
	}

	var req EditSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("edit set, unmarshal json params: %s", err)
		http.Error(w, "invalid edit request", http.StatusBadRequest)
		return
	}

	err = engine.EditValue(ctx, key, req.Weight, req.Reps)
	if err != nil {
		log.Errorf("edit set [%s]: %s", key, err)
	}
	writeResult(ctx, w, engine, err)
}

func (handler *Handler) HandleSwap(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.execution.swap")
	defer span.End()

	engine, ok := handler.engine(w, r)
	if !ok {
		return
	}

	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("swap exercise, unmarshal json params: %s", err)
		http.Error(w, "invalid swap request", http.StatusBadRequest)
		return
	}
	if req.OldItemID == "" {
		http.Error(w, "error, old item id empty", http.StatusBadRequest)
		return
	}

	err := engine.SwapExercise(ctx, req.OldItemID, req.Item)
	if err != nil {
		log.Errorf("swap [%s] -> [%s]: %s", req.OldItemID, req.Item.ID, err)
	}
	writeResult(ctx, w, engine, err)
}

func (handler *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.execution.close")
	defer span.End()

	workoutKey, section, ok := pathParams(w, r)
	if !ok {
		return
	}
	if !handler.manager.Close(workoutKey, section) {
		http.Error(w, "section not open", http.StatusNotFound)
		return
	}
	pkg.WriteTextResponseOK(w, "closed")
}

func (handler *Handler) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.execution.completion")
	defer span.End()

	workoutKey := mux.Vars(r)["workoutKey"]
	if workoutKey == "" {
		http.Error(w, "error, workout key empty", http.StatusBadRequest)
		return
	}

	wc, err := handler.manager.WorkoutCompletion(ctx, workoutKey)
	if err != nil {
		log.Errorf("get completion of workout [%s]: %s", workoutKey, err)
		http.Error(w, "failed to get completion", http.StatusInternalServerError)
		return
	}

	wcJson, err := json.Marshal(wc)
	if err != nil {
		log.Errorf("failed to marshal workout completion: %s", err)
		http.Error(w, "failed to get completion", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, wcJson)
}

func (handler *Handler) runAction(
	w http.ResponseWriter,
	r *http.Request,
	spanName string,
	action func(*Engine, context.Context) error,
) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), spanName)
	defer span.End()

	engine, ok := handler.engine(w, r)
	if !ok {
		return
	}
	err := action(engine, ctx)
	if err != nil {
		log.Errorf("%s [%s]: %s", spanName, engine.sectionKey, err)
	}
	writeResult(ctx, w, engine, err)
}

// writeResult replies with the engine state, unless the engine rejected the action.
// A failed write still gets the state: the transition was applied, and a client
// retrying on a bare 500 would log the next set.
func writeResult(ctx context.Context, w http.ResponseWriter, engine *Engine, err error) {
	switch {
	case err == nil:
		writeState(ctx, w, engine)
	case isRejection(err):
		writeEngineError(w, err)
	default:
		writeDegradedState(ctx, w, engine)
	}
}

// DegradedState is the reply to an action that changed the engine but failed to persist.
type DegradedState struct {
	Snapshot
	Error string `json:"error"`
}

func writeDegradedState(ctx context.Context, w http.ResponseWriter, engine *Engine) {
	stateJson, err := json.Marshal(DegradedState{
		Snapshot: engine.State(ctx),
		Error:    "progress not saved yet, it is written again with the next change",
	})
	if err != nil {
		log.Errorf("failed to marshal engine state: %s", err)
		http.Error(w, "failed to get state", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, stateJson)
}

// isRejection tells if the engine refused the action and left its state untouched.
func isRejection(err error) bool {
	for _, rejected := range []error{
		ErrSelectionLocked,
		ErrGroupCompleted,
		ErrUnknownGroup,
		ErrUnknownExercise,
		ErrInvalidSection,
		ErrInvalidItem,
		ErrEngineClosed,
		templates.ErrTemplateNotFound,
	} {
		if errors.Is(err, rejected) {
			return true
		}
	}
	return false
}

func (handler *Handler) engine(w http.ResponseWriter, r *http.Request) (*Engine, bool) {
	workoutKey, section, ok := pathParams(w, r)
	if !ok {
		return nil, false
	}
	engine, found := handler.manager.Get(workoutKey, section)
	if !found {
		http.Error(w, "section not open", http.StatusNotFound)
		return nil, false
	}
	return engine, true
}

func pathParams(w http.ResponseWriter, r *http.Request) (string, workout.Section, bool) {
	vars := mux.Vars(r)
	workoutKey := vars["workoutKey"]
	if workoutKey == "" {
		http.Error(w, "error, workout key empty", http.StatusBadRequest)
		return "", "", false
	}
	section := workout.Section(vars["section"])
	if !section.IsValid() {
		http.Error(w, "error, invalid section", http.StatusBadRequest)
		return "", "", false
	}
	return workoutKey, section, true
}

func writeState(ctx context.Context, w http.ResponseWriter, engine *Engine) {
	stateJson, err := json.Marshal(engine.State(ctx))
	if err != nil {
		log.Errorf("failed to marshal engine state: %s", err)
		http.Error(w, "failed to get state", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, stateJson)
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSelectionLocked), errors.Is(err, ErrGroupCompleted):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrUnknownGroup), errors.Is(err, ErrUnknownExercise), errors.Is(err, templates.ErrTemplateNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidSection), errors.Is(err, ErrInvalidItem):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrEngineClosed):
		http.Error(w, err.Error(), http.StatusGone)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
