package db

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/diewo77/cuentas-claras/internal/config"
	"github.com/diewo77/cuentas-claras/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestMigrateAndSeed(t *testing.T) {
	conn, err := Open(config.DatabaseConfig{Driver: "sqlite", SQLitePath: "file:" + t.Name() + "?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Ping(conn); err != nil {
		t.Fatalf("ping: %v", err)
	}

	// Missing credentials: nothing happens.
	if err := Seed(conn, SeedAdmin{}); err != nil {
		t.Fatalf("seed without credentials: %v", err)
	}
	var count int64
	conn.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no users got %d", count)
	}

	admin := SeedAdmin{Username: "admin", Password: "s3cret-pass", Email: "admin@example.com"}
	for i := 0; i < 2; i++ {
		if err := Seed(conn, admin); err != nil {
			t.Fatalf("seed run %d: %v", i, err)
		}
	}
	conn.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected seed to be idempotent, got %d users", count)
	}
	var u models.User
	if err := conn.Where("username = ?", "admin").First(&u).Error; err != nil {
		t.Fatalf("load admin: %v", err)
	}
	if !u.IsAdmin() {
		t.Fatalf("expected admin role got %s", u.Role)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("s3cret-pass")) != nil {
		t.Fatalf("expected stored password to be a bcrypt hash of the configured one")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected up and down migrations, got %d files", len(entries))
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := map[string]string{
		"cuentasclaras.db":                   "cuentasclaras.db?_busy_timeout=5000",
		"file:x?mode=memory&cache=shared":    "file:x?mode=memory&cache=shared&_busy_timeout=5000",
		"cuentasclaras.db?_busy_timeout=100": "cuentasclaras.db?_busy_timeout=100",
	}
	for in, want := range tests {
		if got := sqliteDSN(in); got != want {
			t.Errorf("sqliteDSN(%q) = %q want %q", in, got, want)
		}
	}
}

func TestSQLiteConcurrentWriters(t *testing.T) {
	conn, err := Open(config.DatabaseConfig{Driver: "sqlite", SQLitePath: t.TempDir() + "/dev.db"})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, _ := conn.DB()
	t.Cleanup(func() { sqlDB.Close() })
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected a single sqlite connection got %d", got)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = conn.WithContext(context.Background()).Transaction(func(tx *gorm.DB) error {
				u := models.User{Username: fmt.Sprintf("user%d", i), Email: fmt.Sprintf("user%d@example.com", i), Password: "x", Role: models.RoleResident}
				return tx.Create(&u).Error
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d: %v", i, err)
		}
	}
}
