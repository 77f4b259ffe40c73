// Command taskd runs the multi-tenant task service: sqlite-backed storage,
// JWT-authenticated owner-scoped task endpoints, and user registration.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taskdata/taskd/jsonweb"
	"github.com/taskdata/taskd/kit/cli"
	kithttp "github.com/taskdata/taskd/kit/transport/http"
	"github.com/taskdata/taskd/logger"
	"github.com/taskdata/taskd/resource"
	"github.com/taskdata/taskd/sqlite"
	"github.com/taskdata/taskd/sqlite/migrations"
	"github.com/taskdata/taskd/tasks"
	taskstransport "github.com/taskdata/taskd/tasks/transport"
	"github.com/taskdata/taskd/users"
	userstransport "github.com/taskdata/taskd/users/transport"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const signingKeyID = "primary"

func main() {
	var (
		httpBindAddress string
		sqlitePath      string
		authSecret      string
		sessionLength   time.Duration
		logLevel        string
	)

	prog := &cli.Program{
		Name: "taskd",
		Run: func() error {
			return run(httpBindAddress, sqlitePath, authSecret, sessionLength, logLevel)
		},
		Opts: []cli.Opt{
			cli.NewOpt(&httpBindAddress, "http-bind-address", ":8000", "bind address for the HTTP server"),
			cli.NewOpt(&sqlitePath, "sqlite-path", sqlite.DefaultFilename, "path to the sqlite database file"),
			cli.NewOpt(&authSecret, "auth-secret", "", "HMAC secret used to sign and verify bearer tokens"),
			cli.NewOpt(&sessionLength, "session-length", 30*time.Minute, "lifetime of issued bearer tokens"),
			cli.NewOpt(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)"),
		},
	}

	cmd := cli.NewCommand(prog)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(httpBindAddress, sqlitePath, authSecret string, sessionLength time.Duration, logLevel string) error {
	var level zapcore.Level
	if err := level.Set(logLevel); err != nil {
		return err
	}

	log := logger.New(os.Stdout, level)
	defer log.Sync()

	if authSecret == "" {
		log.Fatal("auth-secret must be configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.NewSqlStore(sqlitePath, log.With(zap.String("service", "sqlite")))
	if err != nil {
		return err
	}
	defer store.Close()

	migrator := sqlite.NewMigrator(store, log.With(zap.String("service", "migrations")))
	if err := migrator.Up(ctx, migrations.All); err != nil {
		return err
	}

	key := []byte(authSecret)
	parser := jsonweb.NewTokenParser(jsonweb.SingleKeyStore(signingKeyID, key))
	signer := jsonweb.NewTokenSigner(signingKeyID, key)

	taskSvc := resource.NewLoggingService(
		log.With(zap.String("service", "tasks")),
		resource.NewEngine(log.With(zap.String("service", "tasks")), store, tasks.Schema{}),
	)
	taskHandler := taskstransport.NewTaskHandler(log, taskSvc, parser)

	userSvc := users.NewService(log.With(zap.String("service", "users")), store)
	authHandler := userstransport.NewAuthHandler(log, userSvc, signer, sessionLength)

	reg := prometheus.NewRegistry()
	labels := []string{"handler", "method", "path", "status", "response_code"}
	reqMetric := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskd",
		Subsystem: "http",
		Name:      "api_requests_total",
		Help:      "Number of HTTP requests received.",
	}, labels)
	durMetric := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "taskd",
		Subsystem: "http",
		Name:      "api_request_duration_seconds",
		Help:      "Time taken to respond to HTTP requests.",
	}, labels)
	reg.MustRegister(reqMetric, durMetric)

	api := kithttp.NewAPI(kithttp.WithLog(log))

	r := chi.NewRouter()
	r.Use(
		kithttp.SetCORS,
		kithttp.SetSecurityHeaders,
		kithttp.Metrics("taskd", reqMetric, durMetric),
	)
	r.Mount(authHandler.Prefix(), authHandler)
	r.Mount(taskHandler.Prefix(), taskHandler)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Respond(w, r, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		api.Respond(w, r, http.StatusOK, map[string]string{"message": "Welcome to the taskd API"})
	})

	srv := &http.Server{
		Addr:    httpBindAddress,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening", zap.String("addr", httpBindAddress))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
