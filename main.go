package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/auth"
	cfg "github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/config"
	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/dbmigrate"
	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/logger"
	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/metrics"
)

type App struct {
	DB           DB
	Auth         *auth.Service
	Logger       *zap.Logger
	Metrics      *metrics.Collector
	Registry     *prometheus.Registry
	ClientOrigin string
}

// Handler builds the routed HTTP handler for the app.
func (app *App) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(tagRoute)

	// Health check endpoints (no auth required)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := app.DB.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
	}).Methods("GET")
	r.Handle("/metrics", metrics.Handler(app.Registry)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", app.HandleLogin).Methods("POST")
	api.HandleFunc("/user", app.HandleCreateUser).Methods("POST")

	protected := api.NewRoute().Subrouter()
	protected.Use(app.BearerAuth)
	protected.HandleFunc("/auth/refresh", app.HandleRefresh).Methods("POST")
	protected.HandleFunc("/auth/validate", app.HandleValidate).Methods("GET")

	protected.HandleFunc("/user", app.HandleGetUser).Methods("GET")
	protected.HandleFunc("/user", app.HandleUpdateUser).Methods("PUT")
	protected.HandleFunc("/user", app.HandleDeleteUser).Methods("DELETE")

	protected.HandleFunc("/vehicle", app.HandleListVehicles).Methods("GET")
	protected.HandleFunc("/vehicle", app.HandleCreateVehicle).Methods("POST")
	protected.HandleFunc("/vehicle/{id:[0-9]+}", app.HandleGetVehicle).Methods("GET")
	protected.HandleFunc("/vehicle/{id:[0-9]+}", app.HandleUpdateVehicle).Methods("PUT")
	protected.HandleFunc("/vehicle/{id:[0-9]+}", app.HandleDeleteVehicle).Methods("DELETE")

	protected.HandleFunc("/fuel-purchase", app.HandleListFuelPurchases).Methods("GET")
	protected.HandleFunc("/fuel-purchase", app.HandleCreateFuelPurchase).Methods("POST")
	protected.HandleFunc("/fuel-purchase/{id:[0-9]+}", app.HandleGetFuelPurchase).Methods("GET")
	protected.HandleFunc("/fuel-purchase/{id:[0-9]+}", app.HandleUpdateFuelPurchase).Methods("PUT")
	protected.HandleFunc("/fuel-purchase/{id:[0-9]+}", app.HandleDeleteFuelPurchase).Methods("DELETE")

	// CORS sits outside the router so preflight requests never reach route
	// method matching.
	return RequestID(app.Logging(app.Recovery(app.CORS(SecurityHeaders(r)))))
}

func openDB(c *cfg.Config, log *zap.Logger) (DB, error) {
	switch c.DBAdapter {
	case "sqlite":
		return NewSQLiteDB(c.SQLiteFile)
	case "postgres":
		log.Info("applying database migrations", zap.String("dir", c.MigrationsDir))
		if err := dbmigrate.Apply(c.MigrationsDir, c.PostgresDSN, log); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		return NewPostgresDB(c.PostgresDSN)
	case "memory":
		log.Warn("using in-memory database (not recommended for production)")
		return NewMemoryDB()
	}
	return nil, fmt.Errorf("unsupported DB_ADAPTER: %s (supported: postgres, sqlite, memory)", c.DBAdapter)
}

func main() {
	_ = godotenv.Load()

	c, err := cfg.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(logger.Config{Level: c.LogLevel, Dev: c.LogDev, File: c.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := openDB(c, log)
	if err != nil {
		log.Fatal("database init failed", zap.String("adapter", c.DBAdapter), zap.Error(err))
	}
	log.Info("database ready", zap.String("adapter", c.DBAdapter))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := &App{
		DB: db,
		Auth: auth.NewService(db, auth.Options{
			Secret: []byte(c.JwtSecret),
			TTL:    c.JwtExpiry,
			Hasher: auth.BcryptHasher{Cost: c.BcryptCost},
			Logger: log.Named("auth"),
		}),
		Logger:       log,
		Metrics:      metrics.NewCollector(reg),
		Registry:     reg,
		ClientOrigin: c.ClientOrigin,
	}

	srv := &http.Server{Handler: app.Handler(), Addr: ":" + c.Port, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second}

	go func() {
		log.Info("starting server", zap.String("port", c.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
	if err := app.DB.Close(); err != nil {
		log.Warn("closing database", zap.Error(err))
	}
	log.Info("server exited properly")
}
