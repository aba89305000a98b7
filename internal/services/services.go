// Package services implements the expense and fine ledgers, the
// notification fanout and center, and the user store. Every operation
// receives the acting caller explicitly and asks the access policy before
// touching the store.
package services

import (
	"fmt"

	"github.com/diewo77/cuentas-claras/internal/metrics"
	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/diewo77/cuentas-claras/internal/policy"
	"github.com/diewo77/cuentas-claras/validation"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var logger = loggo.GetLogger("cuentasclaras.services")

// ErrInvalidState is matched (errors.Is) by every rejected status
// transition, such as paying a fine that is already paid.
const ErrInvalidState = errors.ConstError("invalid state")

type stateError struct {
	msg string
}

func (e *stateError) Error() string { return e.msg }

func (e *stateError) Is(target error) bool { return target == ErrInvalidState }

func invalidState(format string, args ...any) error {
	return &stateError{msg: fmt.Sprintf(format, args...)}
}

// notFound maps gorm's missing-row error onto errors.NotFound.
func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFoundf("%s %d", what, id)
	}
	return errors.Annotatef(err, "loading %s %d", what, id)
}

// Env carries the collaborators shared by all services.
type Env struct {
	DB      *gorm.DB
	Access  *policy.AccessPolicy
	Clock   clock.Clock
	Metrics *metrics.Metrics
	// HashCost is the bcrypt cost for new passwords; zero means bcrypt.DefaultCost.
	HashCost int
}

func (e Env) withDefaults() Env {
	if e.Access == nil {
		e.Access = policy.New()
	}
	if e.Clock == nil {
		e.Clock = clock.WallClock
	}
	if e.Metrics == nil {
		e.Metrics = metrics.New()
	}
	if e.HashCost == 0 {
		e.HashCost = bcrypt.DefaultCost
	}
	return e
}

// Services bundles every service built on one Env.
type Services struct {
	Env           Env
	Fanout        *Fanout
	Users         *Users
	Expenses      *ExpenseLedger
	Fines         *FineLedger
	Notifications *NotificationCenter
}

// New wires all services together.
func New(env Env) *Services {
	env = env.withDefaults()
	fanout := NewFanout(env)
	return &Services{
		Env:           env,
		Fanout:        fanout,
		Users:         NewUsers(env, fanout),
		Expenses:      NewExpenseLedger(env, fanout),
		Fines:         NewFineLedger(env, fanout),
		Notifications: NewNotificationCenter(env),
	}
}

// loadResident checks that id names a user with the resident role,
// recording a violation on field otherwise.
func loadResident(db *gorm.DB, field string, id uint, v validation.Violations) (*models.User, error) {
	if id == 0 {
		v.Add(field, "required")
		return nil, nil
	}
	var u models.User
	err := db.First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		v.Add(field, "not_found")
		return nil, nil
	}
	if err != nil {
		return nil, errors.Annotatef(err, "loading resident %d", id)
	}
	if !u.IsResident() {
		v.Add(field, "not_resident")
		return nil, nil
	}
	return &u, nil
}

// countRow is one row of a GROUP BY status aggregate.
type countRow struct {
	Status string
	Count  int64
	Total  int64
}

func groupByStatus(q *gorm.DB) ([]countRow, error) {
	var rows []countRow
	err := q.Select("status, COUNT(*) AS count, CAST(COALESCE(SUM(amount), 0) AS BIGINT) AS total").
		Group("status").
		Scan(&rows).Error
	return rows, errors.Annotate(err, "aggregating by status")
}
