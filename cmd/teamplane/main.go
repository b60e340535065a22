package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/teamplane/teamplane/pkg/api"
	"github.com/teamplane/teamplane/pkg/audit"
	"github.com/teamplane/teamplane/pkg/auth"
	"github.com/teamplane/teamplane/pkg/config"
	"github.com/teamplane/teamplane/pkg/observability"
	"github.com/teamplane/teamplane/pkg/orgs"
	"github.com/teamplane/teamplane/pkg/rbac"
	"github.com/teamplane/teamplane/pkg/workspaces"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.PingContext(context.Background()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("connected to database")

	if err := runMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("database migrations applied")

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	var auditLogger audit.Logger = audit.NopLogger{}
	var auditLister api.AuditLister
	if cfg.Observability.AuditEnabled {
		dbLogger, err := audit.NewDBLogger(db)
		if err != nil {
			log.Fatalf("Failed to initialize audit logger: %v", err)
		}
		auditLogger = dbLogger
		auditLister = dbLogger
	}
	defer auditLogger.Close()

	store := rbac.NewPostgresStore(db)
	seeder := rbac.NewSeederWithMetrics(store, logger, metrics)

	tokens := auth.NewTokenProvider(
		[]byte(cfg.Auth.AccessSecret),
		[]byte(cfg.Auth.RefreshSecret),
		cfg.Auth.Issuer,
		cfg.Auth.AccessTTL,
		cfg.Auth.RefreshTTL,
	)

	server := api.NewServer(api.Deps{
		Tokens:      tokens,
		Store:       store,
		Resolver:    rbac.NewResolver(store),
		Roles:       rbac.NewManager(store, auditLogger, logger),
		Orgs:        orgs.NewPostgresService(db, store, seeder, logger),
		Workspaces:  workspaces.NewPostgresService(db, store, seeder, logger),
		AuditLister: auditLister,
		Logger:      logger,
		Metrics:     metrics,
		Health:      observability.NewHealthHandler(db),
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithFields(map[string]interface{}{"addr": addr}).Info("starting server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

// runMigrations applies every package's schema migrations. Ordering matters:
// the roles table references workspaces, and workspace memberships reference
// roles, so the workspace table migration runs between them.
func runMigrations(db *sql.DB) error {
	wsMigrations := workspaces.GetMigrations()

	apply := func(desc, sqlText string) error {
		if _, err := db.Exec(sqlText); err != nil {
			return fmt.Errorf("migration %q: %w", desc, err)
		}
		return nil
	}

	for _, m := range orgs.GetMigrations() {
		if err := apply(m.Description, m.SQL); err != nil {
			return err
		}
	}
	if err := apply(wsMigrations[0].Description, wsMigrations[0].SQL); err != nil {
		return err
	}
	for _, m := range rbac.GetMigrations() {
		if err := apply(m.Description, m.SQL); err != nil {
			return err
		}
	}
	for _, m := range wsMigrations[1:] {
		if err := apply(m.Description, m.SQL); err != nil {
			return err
		}
	}
	return nil
}
