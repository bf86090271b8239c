package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/2beens/gymrunner/internal/gymstats/workout"
	"github.com/2beens/gymrunner/internal/telemetry/tracing"
	"github.com/2beens/gymrunner/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type templatesRepo interface {
	SaveTemplate(ctx context.Context, tmpl *workout.Template) error
	SaveMovement(ctx context.Context, movementID, name string) error
}

type SaveMovementRequest struct {
	Name string `json:"name"`
}

type SaveTemplateResponse struct {
	ID string `json:"id"`
}

type Handler struct {
	repo     templatesRepo
	provider *CachedProvider
}

func NewHandler(repo templatesRepo, provider *CachedProvider) *Handler {
	return &Handler{
		repo:     repo,
		provider: provider,
	}
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.templates.get")
	defer span.End()

	id := mux.Vars(r)["id"]
	tmpl, err := handler.provider.GetTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		log.Errorf("get template [%s]: %s", id, err)
		http.Error(w, "failed to get template", http.StatusInternalServerError)
		return
	}

	tmplJson, err := json.Marshal(tmpl)
	if err != nil {
		log.Errorf("failed to marshal template: %s", err)
		http.Error(w, "failed to get template", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, tmplJson)
}

// HandleSave creates or replaces a template. A template without an id gets a new one.
func (handler *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.templates.save")
	defer span.End()

	var tmpl workout.Template
	if err := json.NewDecoder(r.Body).Decode(&tmpl); err != nil {
		log.Errorf("save template, unmarshal json params: %s", err)
		http.Error(w, "invalid template", http.StatusBadRequest)
		return
	}
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	if err := ValidateTemplate(&tmpl); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.SaveTemplate(ctx, &tmpl); err != nil {
		log.Errorf("save template [%s]: %s", tmpl.ID, err)
		http.Error(w, "failed to save template", http.StatusInternalServerError)
		return
	}
	handler.provider.Invalidate(tmpl.ID)

	respJson, err := json.Marshal(SaveTemplateResponse{ID: tmpl.ID})
	if err != nil {
		log.Errorf("failed to marshal save template response: %s", err)
		http.Error(w, "failed to save template", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}

func (handler *Handler) HandleSaveMovement(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.templates.savemovement")
	defer span.End()

	movementID := mux.Vars(r)["id"]
	var req SaveMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		http.Error(w, "error, movement name empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.SaveMovement(ctx, movementID, req.Name); err != nil {
		log.Errorf("save movement [%s]: %s", movementID, err)
		http.Error(w, "failed to save movement", http.StatusInternalServerError)
		return
	}
	handler.provider.InvalidateMovement(movementID)

	pkg.WriteTextResponseOK(w, "saved")
}

// ValidateTemplate checks what the grouping and set keys rely on: non-empty item ids,
// unique within a section and without the set key separator, a known mode and at least one set per item.
func ValidateTemplate(tmpl *workout.Template) error {
	if strings.TrimSpace(tmpl.Name) == "" {
		return errors.New("template name empty")
	}

	for _, section := range workout.AllSections {
		items := tmpl.ItemsFor(section)
		// group ids share one namespace: a standalone item is its own group
		cycles := make(map[string]bool)
		for _, item := range items {
			if item.CycleID != "" {
				cycles[item.CycleID] = true
			}
		}

		seen := make(map[string]bool)
		for _, item := range items {
			switch {
			case item.ID == "":
				return fmt.Errorf("%s: item id empty", section)
			case strings.Contains(item.ID, "#"):
				return fmt.Errorf("%s: item id [%s] contains '#'", section, item.ID)
			case seen[item.ID]:
				return fmt.Errorf("%s: duplicate item id [%s]", section, item.ID)
			case cycles[item.ID]:
				return fmt.Errorf("%s: item id [%s] collides with a cycle id", section, item.ID)
			case !item.Mode.IsValid():
				return fmt.Errorf("%s: item [%s] has invalid mode [%s]", section, item.ID, item.Mode)
			case len(item.Sets) == 0:
				return fmt.Errorf("%s: item [%s] has no sets", section, item.ID)
			}
			seen[item.ID] = true
		}
	}
	return nil
}
