package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests            *prometheus.CounterVec
	CounterHandleRequestPanic  prometheus.Counter
	CounterRateLimitedRequests prometheus.Counter
	CounterSetsCompleted       *prometheus.CounterVec
	CounterGroupsCompleted     *prometheus.CounterVec
	CounterSectionsCompleted   *prometheus.CounterVec
	CounterWorkoutsCompleted   prometheus.Counter
	CounterSectionResets       *prometheus.CounterVec
	CounterTimersFired         *prometheus.CounterVec
	CounterStaleTimerEvents    prometheus.Counter
	CounterPRUpdates           prometheus.Counter
	CounterPersistErrors       prometheus.Counter

	// gauges
	GaugeRequests    prometheus.Gauge
	GaugeLifeSignal  prometheus.Gauge
	GaugeOpenEngines prometheus.Gauge

	// histograms
	HistogramRequestDuration *prometheus.HistogramVec
	HistogramPersistDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("gymrunner", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("gymrunner", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})
	counterRateLimitedRequests := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rate_limited_requests",
		Help:      "The total number of rate limited requests",
	})
	counterSetsCompleted := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sets_completed",
		Help:      "The total number of logged sets",
	}, []string{"section"})
	counterGroupsCompleted := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "groups_completed",
		Help:      "The total number of completed exercise groups",
	}, []string{"section"})
	counterSectionsCompleted := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sections_completed",
		Help:      "The total number of completed workout sections",
	}, []string{"section"})
	counterWorkoutsCompleted := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "workouts_completed",
		Help:      "The total number of scheduled workouts marked as completed",
	})
	counterSectionResets := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "section_resets",
		Help:      "The total number of section resets",
	}, []string{"section"})
	counterTimersFired := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "timers_fired",
		Help:      "The total number of exercise and rest timers that ran out",
	}, []string{"phase"})
	counterStaleTimerEvents := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "stale_timer_events",
		Help:      "The total number of timer callbacks dropped because the timer was cancelled or replaced",
	})
	counterPRUpdates := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "personal_record_updates",
		Help:      "The total number of personal record updates",
	})
	counterPersistErrors := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "persist_errors",
		Help:      "The total number of failed progress writes",
	})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of requests served",
	})
	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "life_signal",
		Help:      "Shows whether the service is alive",
	})
	gaugeOpenEngines := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "open_engines",
		Help:      "Current number of workout sections being executed",
	})

	histogramRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of response time for requests in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"route", "method", "status_code"})
	histogramPersistDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "persist_duration_seconds",
		Help:      "Duration of persisting one engine transition in seconds",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})

	return &Manager{
		CounterRequests:            counterRequests,
		CounterHandleRequestPanic:  counterHandleRequestPanic,
		CounterRateLimitedRequests: counterRateLimitedRequests,
		CounterSetsCompleted:       counterSetsCompleted,
		CounterGroupsCompleted:     counterGroupsCompleted,
		CounterSectionsCompleted:   counterSectionsCompleted,
		CounterWorkoutsCompleted:   counterWorkoutsCompleted,
		CounterSectionResets:       counterSectionResets,
		CounterTimersFired:         counterTimersFired,
		CounterStaleTimerEvents:    counterStaleTimerEvents,
		CounterPRUpdates:           counterPRUpdates,
		CounterPersistErrors:       counterPersistErrors,
		GaugeRequests:              gaugeRequests,
		GaugeLifeSignal:            gaugeLifeSignal,
		GaugeOpenEngines:           gaugeOpenEngines,
		HistogramRequestDuration:   histogramRequestDuration,
		HistogramPersistDuration:   histogramPersistDuration,
	}
}
