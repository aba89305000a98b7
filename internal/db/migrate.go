package db

import (
	"embed"

	"github.com/diewo77/cuentas-claras/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/juju/errors"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Expense{},
		&models.Fine{},
		&models.Notification{},
	}
}

// Migrate runs AutoMigrate for all models.
func Migrate(db *gorm.DB) error {
	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return errors.Annotatef(err, "automigrate %T", m)
		}
	}
	for _, table := range []string{"users", "expenses", "fines", "notifications"} {
		if !db.Migrator().HasTable(table) {
			return errors.Errorf("missing table after migration: %s", table)
		}
	}
	return nil
}

// RunSQLMigrations applies the embedded SQL migrations to a postgres URL.
func RunSQLMigrations(databaseURL string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return errors.Annotate(err, "loading embedded migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return errors.Annotate(err, "preparing migrations")
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Annotate(err, "applying migrations")
	}
	version, dirty, _ := m.Version()
	log.Infof("sql migrations at version %d (dirty=%v)", version, dirty)
	return nil
}
