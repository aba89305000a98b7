package services

import (
	"strings"
	"testing"
	"time"

	appdb "github.com/diewo77/cuentas-claras/internal/db"
	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/diewo77/cuentas-claras/internal/policy"
	"github.com/juju/clock/testclock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	clock    *testclock.Clock
	svc      *Services
	admin    *models.User
	resident *models.User
}

func (f *fixture) adminCaller() policy.Caller    { return policy.CallerOf(f.admin) }
func (f *fixture) residentCaller() policy.Caller { return policy.CallerOf(f.resident) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection keeps the shared in-memory database free of lock errors.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := appdb.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	clk := testclock.NewClock(testNow)
	f := &fixture{
		db:    conn,
		clock: clk,
		svc:   New(Env{DB: conn, Clock: clk, HashCost: bcrypt.MinCost}),
	}
	f.admin = f.user(t, "admin", models.RoleAdmin)
	f.resident = f.user(t, "ana", models.RoleResident)
	return f
}

func (f *fixture) user(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(username+"-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &models.User{Username: username, Email: username + "@example.com", FirstName: strings.ToUpper(username[:1]) + username[1:], LastName: "Test", Password: string(hash), Role: role}
	if err := f.db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func (f *fixture) notifications(t *testing.T, typ models.NotificationType, objectID uint) []models.Notification {
	t.Helper()
	var out []models.Notification
	if err := f.db.Where("type = ? AND object_id = ?", typ, objectID).Order("id").Find(&out).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	return out
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}
