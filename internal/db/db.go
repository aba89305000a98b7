// Package db opens the store, migrates its schema and seeds bootstrap data.
package db

import (
	"strings"
	"time"

	"github.com/diewo77/cuentas-claras/internal/config"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var log = loggo.GetLogger("cuentasclaras.db")

const (
	connectAttempts = 5
	// sqliteBusyTimeout is how long, in milliseconds, a sqlite writer waits
	// for a lock before failing.
	sqliteBusyTimeout = "5000"
)

// Open connects to the configured store, retrying so that a database
// container still starting up does not abort the process.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	level := logger.Silent
	if cfg.Debug {
		level = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	if cfg.IsSQLite() {
		log.Infof("opening sqlite database %s", cfg.SQLitePath)
		db, err := gorm.Open(sqlite.Open(sqliteDSN(cfg.SQLitePath)), gcfg)
		if err != nil {
			return nil, errors.Annotate(err, "opening sqlite")
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Annotate(err, "opening sqlite")
		}
		// sqlite has a single writer; concurrent transactions on more than
		// one connection fail with "database is locked".
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	log.Infof("connecting to database: host=%s port=%d dbname=%s user=%s",
		cfg.Host, cfg.Port, cfg.DBName, cfg.User)
	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gcfg)
		if err == nil {
			return db, nil
		}
		log.Warningf("connection attempt %d/%d failed: %v", i, connectAttempts, err)
		time.Sleep(2 * time.Second)
	}
	return nil, errors.Annotate(err, "connecting to postgres")
}

// sqliteDSN adds a busy timeout to path unless it already sets one.
func sqliteDSN(path string) string {
	if strings.Contains(path, "_busy_timeout=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_busy_timeout=" + sqliteBusyTimeout
}

// Ping runs a trivial query, used by the health check.
func Ping(db *gorm.DB) error {
	return db.Exec("SELECT 1").Error
}
