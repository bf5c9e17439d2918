package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"piston_control/internal/config"
	"piston_control/internal/handlers"
	"piston_control/internal/logger"
	"piston_control/internal/repository"
	"piston_control/internal/repository/db"
	"piston_control/internal/server"
	"piston_control/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title                       valved API
// @version                     1.0
// @description                 Backend emulator for remote valve control.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	configPath := flag.String("config", "", "path to valved.yml (default: configs/valved.yml)")
	flag.Parse()

	// load configs/valved.yml + VALVE_* env
	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	// open DB
	conn, err := openDB(cfg.DB.Path, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		log.Fatalw("failed to create uploads dir", "dir", cfg.Uploads.Dir, "err", err)
	}

	// wire dependencies
	repos := repository.NewRepository(conn)
	services := service.NewService(repos, service.Config{
		JWTSecret:  cfg.JWT.Secret,
		TokenTTL:   cfg.JWT.TTL,
		UploadsDir: cfg.Uploads.Dir,
	}, log)
	apiHandler := handlers.NewHandler(services, cfg.Uploads.Dir, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start the schedule runner (via composed service)
	go services.Scheduler.Run(ctx, cfg.Scheduler.SyncInterval)

	// start HTTP server
	srv := server.New(cfg.Port, apiHandler.InitRoutes())
	runHTTPServer(srv, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

// openDB initializes the SQLite database with the backend schema.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "valved.db")
		path = "valved.db"
	}
	return db.InitDB(path, db.ServerSchema)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, log *logger.Logger) {
	go func() {
		log.Infow("listening", "addr", srv.Addr())
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the scheduler
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
