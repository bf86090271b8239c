package records

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/gymrunner/internal/telemetry/tracing"
	"github.com/2beens/gymrunner/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// DefaultNewWindow is used when the list request names no window start.
const DefaultNewWindow = 7 * 24 * time.Hour

type Handler struct {
	detector *Detector
	now      func() time.Time
}

func NewHandler(detector *Detector) *Handler {
	return &Handler{
		detector: detector,
		now:      time.Now,
	}
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.records.get")
	defer span.End()

	movementID := mux.Vars(r)["movementId"]
	pr, err := handler.detector.Get(ctx, movementID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			http.Error(w, "record not found", http.StatusNotFound)
			return
		}
		log.Errorf("get record of [%s]: %s", movementID, err)
		http.Error(w, "failed to get record", http.StatusInternalServerError)
		return
	}

	prJson, err := json.Marshal(pr)
	if err != nil {
		log.Errorf("failed to marshal record: %s", err)
		http.Error(w, "failed to get record", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, prJson)
}

// HandleListNew lists the records set since the "since" query param (YYYY-MM-DD).
func (handler *Handler) HandleListNew(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.records.listnew")
	defer span.End()

	windowStart := handler.now().Add(-DefaultNewWindow)
	if since := r.URL.Query().Get("since"); since != "" {
		parsed, err := time.Parse("2006-01-02", since)
		if err != nil {
			http.Error(w, "error, invalid since date", http.StatusBadRequest)
			return
		}
		windowStart = parsed
	}

	fresh, err := handler.detector.ListNew(ctx, windowStart)
	if err != nil {
		log.Errorf("list new records: %s", err)
		http.Error(w, "failed to list records", http.StatusInternalServerError)
		return
	}
	if fresh == nil {
		fresh = []PersonalRecord{}
	}

	freshJson, err := json.Marshal(fresh)
	if err != nil {
		log.Errorf("failed to marshal records: %s", err)
		http.Error(w, "failed to list records", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, freshJson)
}
