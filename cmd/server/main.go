package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/cuentas-claras/internal/config"
	"github.com/diewo77/cuentas-claras/internal/db"
	"github.com/diewo77/cuentas-claras/internal/services"
	"github.com/joho/godotenv"
	"github.com/juju/clock"
	"github.com/juju/loggo"
	"gorm.io/gorm"
)

var logger = loggo.GetLogger("cuentasclaras.server")

var (
	migrateOnlyFlag   = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag      = flag.Bool("seed-only", false, "Run DB seed and exit")
	notifyOverdueFlag = flag.Bool("notify-overdue", false, "Send overdue expense notices and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	if err := loggo.ConfigureLoggers(cfg.App.LogConfig); err != nil {
		logger.Warningf("invalid LOG_CONFIG %q: %v", cfg.App.LogConfig, err)
	}

	dbConn, err := db.Open(cfg.Database)
	if err != nil {
		logger.Criticalf("failed to connect to database: %v", err)
		os.Exit(1)
	}

	if *migrateOnlyFlag {
		mustMigrate(cfg, dbConn)
		logger.Infof("migrations completed successfully")
		return
	}

	seed := db.SeedAdmin{
		Username: cfg.Auth.AdminUsername,
		Password: cfg.Auth.AdminPassword,
		Email:    cfg.Auth.AdminEmail,
	}
	if *seedOnlyFlag {
		mustSeed(dbConn, seed)
		logger.Infof("seeding completed successfully")
		return
	}

	// SQLite dev databases are always migrated; postgres only when enabled.
	if cfg.App.Migrations || cfg.Database.IsSQLite() {
		mustMigrate(cfg, dbConn)
	}
	mustSeed(dbConn, seed)

	svc := services.New(services.Env{DB: dbConn, Clock: clock.WallClock})

	if *notifyOverdueFlag {
		sent, err := svc.Expenses.NotifyOverdue(context.Background())
		if err != nil {
			logger.Criticalf("overdue notices failed: %v", err)
			os.Exit(1)
		}
		logger.Infof("sent %d overdue notices", sent)
		return
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewApp(svc, cfg.Auth.TokenTTL),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Infof("server starting on port %s (dev=%v, driver=%s)", cfg.Server.Port, cfg.App.Dev, cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Criticalf("server error: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("error during shutdown: %v", err)
	}
	logger.Infof("server stopped gracefully")
}

// mustMigrate applies the schema: embedded SQL migrations on postgres when
// MIGRATIONS is set, AutoMigrate otherwise.
func mustMigrate(cfg *config.Config, conn *gorm.DB) {
	var err error
	if cfg.App.Migrations && !cfg.Database.IsSQLite() {
		err = db.RunSQLMigrations(cfg.Database.URL())
	} else {
		err = db.Migrate(conn)
	}
	if err != nil {
		logger.Criticalf("migration failed: %v", err)
		os.Exit(1)
	}
}

func mustSeed(conn *gorm.DB, admin db.SeedAdmin) {
	if err := db.Seed(conn, admin); err != nil {
		logger.Criticalf("seeding failed: %v", err)
		os.Exit(1)
	}
}
