package middleware

import (
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/2beens/gymrunner/internal/logging"
	"github.com/2beens/gymrunner/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// maxDrainBytes caps how much of an unread body is discarded to keep the connection reusable.
const maxDrainBytes = 256 << 10

// RequestLifecycle wraps every request: it logs it, turns a handler panic into a 500,
// and drains and closes the request body once the handler is done.
func RequestLifecycle(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := log.WithFields(requestFields(r))
			entry.Trace(" ====> request")

			defer func() {
				if r.Body != nil {
					_, _ = io.CopyN(io.Discard, r.Body, maxDrainBytes)
					_ = r.Body.Close()
				}
			}()
			defer func() {
				if rec := recover(); rec != nil {
					entry.Errorf("http: panic serving %s: %v\n%s", r.URL.Path, rec, debug.Stack())
					if metricsManager != nil {
						metricsManager.CounterHandleRequestPanic.Inc()
					}
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
			entry.WithField("took", time.Since(start)).Trace(" <==== request done")
		})
	}
}

// requestFields picks the workout coordinates out of the route, so engine logs and sentry
// issues of one request can be tied to the workout.
func requestFields(r *http.Request) log.Fields {
	fields := log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"ua":     r.Header.Get("User-Agent"),
	}
	vars := mux.Vars(r)
	if workoutKey := vars["workoutKey"]; workoutKey != "" {
		fields[logging.FieldWorkoutKey] = workoutKey
	}
	if section := vars["section"]; section != "" {
		fields[logging.FieldSection] = section
	}
	return fields
}
