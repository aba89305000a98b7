package services

import (
	"context"
	"time"

	"github.com/diewo77/cuentas-claras/gate"
	"github.com/diewo77/cuentas-claras/internal/metrics"
	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/diewo77/cuentas-claras/internal/policy"
	"github.com/diewo77/cuentas-claras/validation"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"gorm.io/gorm"
)

// FineInput is the writable part of a fine.
type FineInput struct {
	ResidentID  uint          `json:"resident_id"`
	Reason      string        `json:"reason"`
	Description string        `json:"description"`
	Amount      models.Amount `json:"amount"`
}

// FineStatistics aggregates the fine ledger.
type FineStatistics struct {
	Total         int64         `json:"total"`
	Pending       int64         `json:"pending"`
	Paid          int64         `json:"paid"`
	Voided        int64         `json:"voided"`
	PendingAmount models.Amount `json:"pending_amount"`
	PaidAmount    models.Amount `json:"paid_amount"`
}

// FineLedger manages fines. A fine starts pending and ends either paid
// or voided; both are terminal.
type FineLedger struct {
	db      *gorm.DB
	access  *policy.AccessPolicy
	clock   clock.Clock
	metrics *metrics.Metrics
	fanout  *Fanout
}

func NewFineLedger(env Env, fanout *Fanout) *FineLedger {
	env = env.withDefaults()
	return &FineLedger{db: env.DB, access: env.Access, clock: env.Clock, metrics: env.Metrics, fanout: fanout}
}

func validateFine(db *gorm.DB, in FineInput) (*models.User, error) {
	v := validation.Violations{}
	validation.Required("reason", in.Reason, v)
	validation.MaxLength("reason", in.Reason, 100, v)
	validation.Positive("amount", in.Amount.Cents(), v)
	resident, err := loadResident(db, "resident_id", in.ResidentID, v)
	if err != nil {
		return nil, err
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return resident, nil
}

// Create records a new pending fine. Admin only.
func (l *FineLedger) Create(ctx context.Context, caller policy.Caller, in FineInput) (*models.Fine, error) {
	if err := l.access.Authorize(ctx, caller, gate.ActionCreate, policy.ResourceFine, nil); err != nil {
		return nil, err
	}
	db := l.db.WithContext(ctx)
	resident, err := validateFine(db, in)
	if err != nil {
		return nil, err
	}
	fine := &models.Fine{
		CreatedAt:   l.clock.Now(),
		ResidentID:  resident.ID,
		Reason:      in.Reason,
		Description: in.Description,
		Amount:      in.Amount,
		Status:      models.FineStatusPending,
	}
	if err := db.Omit("Resident").Create(fine).Error; err != nil {
		return nil, errors.Annotate(err, "creating fine")
	}
	fine.Resident = resident
	l.metrics.LedgerTransitions.WithLabelValues(policy.ResourceFine, "create").Inc()
	logger.Infof("fine %d created for resident %d (%s)", fine.ID, resident.ID, fine.Amount)
	l.fanout.Publish(ctx, Event{Kind: EventFineCreated, Resident: resident, Fine: fine})
	return fine, nil
}

// Update rewrites the descriptive fields of a fine. Admin only.
func (l *FineLedger) Update(ctx context.Context, caller policy.Caller, id uint, in FineInput) (*models.Fine, error) {
	if err := l.access.Authorize(ctx, caller, gate.ActionUpdate, policy.ResourceFine, nil); err != nil {
		return nil, err
	}
	if _, err := l.find(ctx, caller, id); err != nil {
		return nil, err
	}
	db := l.db.WithContext(ctx)
	resident, err := validateFine(db, in)
	if err != nil {
		return nil, err
	}
	err = db.Model(&models.Fine{}).Where("id = ?", id).Updates(map[string]any{
		"resident_id": resident.ID,
		"reason":      in.Reason,
		"description": in.Description,
		"amount":      in.Amount,
	}).Error
	if err != nil {
		return nil, errors.Annotatef(err, "updating fine %d", id)
	}
	return l.find(ctx, caller, id)
}

// Delete removes a fine. Admin only.
func (l *FineLedger) Delete(ctx context.Context, caller policy.Caller, id uint) error {
	if err := l.access.Authorize(ctx, caller, gate.ActionDelete, policy.ResourceFine, nil); err != nil {
		return err
	}
	res := l.db.WithContext(ctx).Delete(&models.Fine{}, id)
	if res.Error != nil {
		return errors.Annotatef(res.Error, "deleting fine %d", id)
	}
	if res.RowsAffected == 0 {
		return errors.NotFoundf("fine %d", id)
	}
	logger.Infof("fine %d deleted by user %d", id, caller.UserID)
	return nil
}

func (l *FineLedger) find(ctx context.Context, caller policy.Caller, id uint) (*models.Fine, error) {
	var fine models.Fine
	q := l.access.ScopeOf(caller).Apply(l.db.WithContext(ctx), "resident_id")
	if err := q.Preload("Resident").First(&fine, id).Error; err != nil {
		return nil, notFound(err, "fine", id)
	}
	return &fine, nil
}

// Get returns one fine of the caller's visible scope.
func (l *FineLedger) Get(ctx context.Context, caller policy.Caller, id uint) (*models.Fine, error) {
	fine, err := l.find(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := l.access.Authorize(ctx, caller, gate.ActionView, policy.ResourceFine, fine); err != nil {
		return nil, err
	}
	return fine, nil
}

// Pay settles a pending fine. Allowed for admins and the owning resident.
func (l *FineLedger) Pay(ctx context.Context, caller policy.Caller, id uint) (*models.Fine, error) {
	return l.transition(ctx, caller, id, gate.ActionPay, models.FineStatusPaid)
}

// Void cancels a pending fine. Admin only; the resident is the only one
// notified.
func (l *FineLedger) Void(ctx context.Context, caller policy.Caller, id uint) (*models.Fine, error) {
	return l.transition(ctx, caller, id, gate.ActionVoid, models.FineStatusVoided)
}

func (l *FineLedger) transition(ctx context.Context, caller policy.Caller, id uint, action gate.Action, to models.FineStatus) (*models.Fine, error) {
	fine, err := l.find(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := l.access.Authorize(ctx, caller, action, policy.ResourceFine, fine); err != nil {
		return nil, err
	}
	if fine.IsTerminal() {
		return nil, invalidState("fine %d is already %s", id, fine.Status)
	}

	now := l.clock.Now()
	updates := map[string]any{"status": to}
	var paidAt *time.Time
	if to == models.FineStatusPaid {
		paidAt = &now
		updates["paid_at"] = now
	}
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Fine{}).
			Where("id = ? AND status = ?", id, models.FineStatusPending).
			Updates(updates)
		if res.Error != nil {
			return errors.Annotatef(res.Error, "moving fine %d to %s", id, to)
		}
		if res.RowsAffected == 0 {
			var cur models.Fine
			if err := tx.First(&cur, id).Error; err != nil {
				return notFound(err, "fine", id)
			}
			return invalidState("fine %d is already %s", id, cur.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fine.Status = to
	fine.PaidAt = paidAt
	l.metrics.LedgerTransitions.WithLabelValues(policy.ResourceFine, string(action)).Inc()
	logger.Infof("fine %d %s by user %d", id, to, caller.UserID)

	kind := EventFinePaid
	if to == models.FineStatusVoided {
		kind = EventFineVoided
	}
	l.fanout.Publish(ctx, Event{Kind: kind, Resident: fine.Resident, Fine: fine})
	return fine, nil
}

// List returns the visible fines, newest first.
func (l *FineLedger) List(ctx context.Context, caller policy.Caller) ([]models.Fine, error) {
	if err := l.access.Authorize(ctx, caller, gate.ActionList, policy.ResourceFine, nil); err != nil {
		return nil, err
	}
	var out []models.Fine
	q := l.access.ScopeOf(caller).Apply(l.db.WithContext(ctx), "resident_id")
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, errors.Annotate(err, "listing fines")
	}
	return out, nil
}

// Statistics counts and sums the whole ledger. Admin only.
func (l *FineLedger) Statistics(ctx context.Context, caller policy.Caller) (*FineStatistics, error) {
	if err := l.access.Authorize(ctx, caller, gate.ActionStatistics, policy.ResourceFine, nil); err != nil {
		return nil, err
	}
	rows, err := groupByStatus(l.db.WithContext(ctx).Model(&models.Fine{}))
	if err != nil {
		return nil, err
	}
	stats := &FineStatistics{}
	for _, r := range rows {
		stats.Total += r.Count
		switch models.FineStatus(r.Status) {
		case models.FineStatusPending:
			stats.Pending = r.Count
			stats.PendingAmount = models.Amount(r.Total)
		case models.FineStatusPaid:
			stats.Paid = r.Count
			stats.PaidAmount = models.Amount(r.Total)
		case models.FineStatusVoided:
			stats.Voided = r.Count
		}
	}
	return stats, nil
}
