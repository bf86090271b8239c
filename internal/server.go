package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/2beens/gymrunner/internal/config"
	"github.com/2beens/gymrunner/internal/db"
	"github.com/2beens/gymrunner/internal/events"
	"github.com/2beens/gymrunner/internal/gymstats/completion"
	"github.com/2beens/gymrunner/internal/gymstats/execution"
	"github.com/2beens/gymrunner/internal/gymstats/progress"
	"github.com/2beens/gymrunner/internal/gymstats/records"
	"github.com/2beens/gymrunner/internal/gymstats/schedule"
	"github.com/2beens/gymrunner/internal/gymstats/sessions"
	"github.com/2beens/gymrunner/internal/gymstats/templates"
	"github.com/2beens/gymrunner/internal/gymstats/units"
	"github.com/2beens/gymrunner/internal/gymstats/workout"
	"github.com/2beens/gymrunner/internal/middleware"
	"github.com/2beens/gymrunner/internal/telemetry/metrics"
	"github.com/2beens/gymrunner/internal/telemetry/tracing"
)

type templatesSaver interface {
	SaveTemplate(ctx context.Context, tmpl *workout.Template) error
	SaveMovement(ctx context.Context, movementID, name string) error
}

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config      *config.Config
	dbPool      *pgxpool.Pool
	redisClient *redis.Client

	rateLimiter       middleware.RequestRateLimiter
	templatesRepo     templatesSaver
	templatesProvider *templates.CachedProvider
	prDetector        *records.Detector
	engineManager     *execution.Manager
	unsubscribePR     func()

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	PostgresPassword        string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config
	dbParams := db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         cfg.PostgresUser,
		DBPassword:     params.PostgresPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	}

	if cfg.MigrationsPath != "" {
		if err := db.RunMigrations(dbParams.ConnString(), cfg.MigrationsPath); err != nil {
			return nil, fmt.Errorf("db migrations: %w", err)
		}
		log.Debugf("db migrations from [%s] applied", cfg.MigrationsPath)
	}

	dbPool, err := db.NewDBPool(ctx, dbParams)
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("gymrunner", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "gymrunner", rdb)
	if err != nil {
		return nil, err
	}

	var (
		completionStore completion.Store
		progressStore   progress.Store
	)
	if cfg.UseMemoryStores {
		log.Warnln("completion and progress kept in memory, nothing survives a restart")
		completionStore = completion.NewMemoryStore()
		progressStore = progress.NewMemoryStore()
	} else {
		stateTTL := completion.DefaultTTL
		if cfg.StateTTLDays > 0 {
			stateTTL = cfg.StateTTL()
		}
		log.Debugf("completion and progress keys expire %s after the last write", stateTTL)
		completionStore = completion.NewRedisStore(rdb, stateTTL)
		progressStore = progress.NewRedisStore(rdb, stateTTL)
	}

	templatesRepo := templates.NewRepo(dbPool)
	templatesProvider := templates.NewCachedProvider(templatesRepo, cfg.TemplateCacheSizeMB, cfg.TemplateCacheTTL())

	setCompleted := events.NewCallbackEvent[workout.SetCompleted]()
	prDetector := records.NewDetector(records.NewRepo(dbPool), metricsManager, cfg.PRWriteTimeout())
	unsubscribePR := prDetector.Listen(setCompleted)

	settings := execution.DefaultSettings()
	if cfg.RestSeconds > 0 {
		settings.RestDuration = cfg.RestDuration()
	}
	if cfg.ExerciseSeconds > 0 {
		settings.ExerciseDuration = cfg.ExerciseDuration()
	}
	if cfg.PersistTimeoutSeconds > 0 {
		settings.PersistTimeout = cfg.PersistTimeout()
	}
	if cfg.EngineIdleMinutes > 0 {
		settings.IdleTimeout = cfg.EngineIdleTimeout()
	}

	engineManager := execution.NewManager(execution.Deps{
		Templates:    templatesProvider,
		Library:      templatesProvider,
		Sessions:     sessions.NewService(sessions.NewRepo(dbPool)),
		Completion:   completion.NewAdapter(completionStore),
		Progress:     progressStore,
		Schedule:     schedule.NewRepo(dbPool),
		Units:        units.NewProvider(cfg.UseMetric),
		SetCompleted: setCompleted,
		Metrics:      metricsManager,
	}, settings)

	return &Server{
		config:      cfg,
		dbPool:      dbPool,
		redisClient: rdb,

		rateLimiter:       redis_rate.NewLimiter(rdb),
		templatesRepo:     templatesRepo,
		templatesProvider: templatesProvider,
		prDetector:        prDetector,
		engineManager:     engineManager,
		unsubscribePR:     unsubscribePR,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("gymrunner-router"))

	executionHandler := execution.NewHandler(s.engineManager)
	workouts := r.PathPrefix("/workouts/{workoutKey}").Subrouter()
	workouts.Use(middleware.RateLimit(
		s.rateLimiter,
		s.metricsManager,
		"workouts",
		s.config.RateLimitPerMin,
	))
	workouts.HandleFunc("/completion", executionHandler.HandleCompletion).Methods("GET", "OPTIONS").Name("workout-completion")
	section := "/sections/{section}"
	workouts.HandleFunc(section, executionHandler.HandleOpen).Methods("POST", "OPTIONS").Name("open-section")
	workouts.HandleFunc(section, executionHandler.HandleState).Methods("GET").Name("section-state")
	workouts.HandleFunc(section, executionHandler.HandleClose).Methods("DELETE").Name("close-section")
	workouts.HandleFunc(section+"/select", executionHandler.HandleSelect).Methods("POST", "OPTIONS").Name("select-group")
	workouts.HandleFunc(section+"/start", executionHandler.HandleStart).Methods("POST", "OPTIONS").Name("start-set")
	workouts.HandleFunc(section+"/complete", executionHandler.HandleComplete).Methods("POST", "OPTIONS").Name("complete-set")
	workouts.HandleFunc(section+"/skip-rest", executionHandler.HandleSkipRest).Methods("POST", "OPTIONS").Name("skip-rest")
	workouts.HandleFunc(section+"/reset", executionHandler.HandleReset).Methods("POST", "OPTIONS").Name("reset-section")
	workouts.HandleFunc(section+"/complete-all", executionHandler.HandleCompleteAll).Methods("POST", "OPTIONS").Name("complete-section")
	workouts.HandleFunc(section+"/sets/{setKey}", executionHandler.HandleEditSet).Methods("PUT", "OPTIONS").Name("edit-set")
	workouts.HandleFunc(section+"/swap", executionHandler.HandleSwap).Methods("POST", "OPTIONS").Name("swap-exercise")

	templatesHandler := templates.NewHandler(s.templatesRepo, s.templatesProvider)
	r.HandleFunc("/templates", templatesHandler.HandleSave).Methods("PUT", "OPTIONS").Name("save-template")
	r.HandleFunc("/templates/{id}", templatesHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-template")
	r.HandleFunc("/movements/{id}", templatesHandler.HandleSaveMovement).Methods("PUT", "OPTIONS").Name("save-movement")

	recordsHandler := records.NewHandler(s.prDetector)
	r.HandleFunc("/records/new", recordsHandler.HandleListNew).Methods("GET", "OPTIONS").Name("new-records")
	r.HandleFunc("/records/{movementId}", recordsHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-record")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	r.Use(middleware.RequestLifecycle(s.metricsManager))
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))

	return r
}

func (s *Server) Serve(host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests before the engines go away
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	// pending timers are cancelled, progress is already persisted per transition
	s.engineManager.CloseAll()
	s.unsubscribePR()
	log.Trace("engines closed ...")

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
