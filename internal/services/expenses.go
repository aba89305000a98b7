package services

import (
	"context"

	"github.com/diewo77/cuentas-claras/gate"
	"github.com/diewo77/cuentas-claras/internal/metrics"
	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/diewo77/cuentas-claras/internal/policy"
	"github.com/diewo77/cuentas-claras/validation"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"gorm.io/gorm"
)

// ExpenseInput is the writable part of an expense, used by Create and Update.
type ExpenseInput struct {
	ResidentID  uint          `json:"resident_id"`
	Concept     string        `json:"concept"`
	Description string        `json:"description"`
	Amount      models.Amount `json:"amount"`
	IssueDate   models.Date   `json:"issue_date"`
	DueDate     models.Date   `json:"due_date"`
}

// ExpenseStatistics aggregates the expense ledger.
type ExpenseStatistics struct {
	Total         int64         `json:"total"`
	Pending       int64         `json:"pending"`
	Paid          int64         `json:"paid"`
	PendingAmount models.Amount `json:"pending_amount"`
	PaidAmount    models.Amount `json:"paid_amount"`
}

// ExpenseLedger manages common expenses and their pending -> paid lifecycle.
type ExpenseLedger struct {
	db      *gorm.DB
	access  *policy.AccessPolicy
	clock   clock.Clock
	metrics *metrics.Metrics
	fanout  *Fanout
}

func NewExpenseLedger(env Env, fanout *Fanout) *ExpenseLedger {
	env = env.withDefaults()
	return &ExpenseLedger{db: env.DB, access: env.Access, clock: env.Clock, metrics: env.Metrics, fanout: fanout}
}

// validate checks in and resolves its resident. A zero issue date
// defaults to today.
func (l *ExpenseLedger) validate(db *gorm.DB, in *ExpenseInput) (*models.User, error) {
	v := validation.Violations{}
	validation.Required("concept", in.Concept, v)
	validation.MaxLength("concept", in.Concept, 100, v)
	validation.Positive("amount", in.Amount.Cents(), v)
	if in.IssueDate.IsZero() {
		in.IssueDate = models.DateOf(l.clock.Now())
	}
	if in.DueDate.IsZero() {
		v.Add("due_date", "required")
	} else if in.DueDate.Before(in.IssueDate) {
		v.Add("due_date", "due_before_issue")
	}
	resident, err := loadResident(db, "resident_id", in.ResidentID, v)
	if err != nil {
		return nil, err
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return resident, nil
}

// Create records a new pending expense for a resident. Admin only.
func (l *ExpenseLedger) Create(ctx context.Context, caller policy.Caller, in ExpenseInput) (*models.Expense, error) {
	if err := l.access.Authorize(ctx, caller, gate.ActionCreate, policy.ResourceExpense, nil); err != nil {
		return nil, err
	}
	db := l.db.WithContext(ctx)
	resident, err := l.validate(db, &in)
	if err != nil {
		return nil, err
	}
	exp := &models.Expense{
		CreatedAt:   l.clock.Now(),
		ResidentID:  resident.ID,
		Concept:     in.Concept,
		Description: in.Description,
		Amount:      in.Amount,
		Status:      models.ExpenseStatusPending,
		IssueDate:   in.IssueDate,
		DueDate:     in.DueDate,
	}
	if err := db.Omit("Resident").Create(exp).Error; err != nil {
		return nil, errors.Annotate(err, "creating expense")
	}
	exp.Resident = resident
	l.metrics.LedgerTransitions.WithLabelValues(policy.ResourceExpense, "create").Inc()
	logger.Infof("expense %d created for resident %d (%s)", exp.ID, resident.ID, exp.Amount)
	l.fanout.Publish(ctx, Event{Kind: EventExpenseCreated, Resident: resident, Expense: exp})
	return exp, nil
}

// Update rewrites the descriptive fields of an expense. Status and
// paid_at are never touched. Admin only.
func (l *ExpenseLedger) Update(ctx context.Context, caller policy.Caller, id uint, in ExpenseInput) (*models.Expense, error) {
	if err := l.access.Authorize(ctx, caller, gate.ActionUpdate, policy.ResourceExpense, nil); err != nil {
		return nil, err
	}
	current, err := l.find(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if in.IssueDate.IsZero() {
		in.IssueDate = current.IssueDate
	}
	db := l.db.WithContext(ctx)
	resident, err := l.validate(db, &in)
	if err != nil {
		return nil, err
	}
	err = db.Model(&models.Expense{}).Where("id = ?", id).Updates(map[string]any{
		"resident_id": resident.ID,
		"concept":     in.Concept,
		"description": in.Description,
		"amount":      in.Amount,
		"issue_date":  in.IssueDate,
		"due_date":    in.DueDate,
	}).Error
	if err != nil {
		return nil, errors.Annotatef(err, "updating expense %d", id)
	}
	return l.find(ctx, caller, id)
}

// Delete removes an expense. Admin only.
func (l *ExpenseLedger) Delete(ctx context.Context, caller policy.Caller, id uint) error {
	if err := l.access.Authorize(ctx, caller, gate.ActionDelete, policy.ResourceExpense, nil); err != nil {
		return err
	}
	res := l.db.WithContext(ctx).Delete(&models.Expense{}, id)
	if res.Error != nil {
		return errors.Annotatef(res.Error, "deleting expense %d", id)
	}
	if res.RowsAffected == 0 {
		return errors.NotFoundf("expense %d", id)
	}
	logger.Infof("expense %d deleted by user %d", id, caller.UserID)
	return nil
}

// find loads an expense, with its resident, inside the caller's visible scope.
func (l *ExpenseLedger) find(ctx context.Context, caller policy.Caller, id uint) (*models.Expense, error) {
	var exp models.Expense
	q := l.access.ScopeOf(caller).Apply(l.db.WithContext(ctx), "resident_id")
	if err := q.Preload("Resident").First(&exp, id).Error; err != nil {
		return nil, notFound(err, "expense", id)
	}
	return &exp, nil
}

// Get returns one expense of the caller's visible scope.
func (l *ExpenseLedger) Get(ctx context.Context, caller policy.Caller, id uint) (*models.Expense, error) {
	exp, err := l.find(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := l.access.Authorize(ctx, caller, gate.ActionView, policy.ResourceExpense, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// Pay moves a pending expense to paid, stamping paid_at in the same write.
// Only the first of several concurrent calls succeeds; the others get
// ErrInvalidState.
func (l *ExpenseLedger) Pay(ctx context.Context, caller policy.Caller, id uint) (*models.Expense, error) {
	exp, err := l.find(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := l.access.Authorize(ctx, caller, gate.ActionPay, policy.ResourceExpense, exp); err != nil {
		return nil, err
	}
	if !exp.IsPending() {
		return nil, invalidState("expense %d is already %s", id, exp.Status)
	}

	now := l.clock.Now()
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Expense{}).
			Where("id = ? AND status = ?", id, models.ExpenseStatusPending).
			Updates(map[string]any{"status": models.ExpenseStatusPaid, "paid_at": now})
		if res.Error != nil {
			return errors.Annotatef(res.Error, "paying expense %d", id)
		}
		if res.RowsAffected == 0 {
			var cur models.Expense
			if err := tx.First(&cur, id).Error; err != nil {
				return notFound(err, "expense", id)
			}
			return invalidState("expense %d is already %s", id, cur.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	exp.Status = models.ExpenseStatusPaid
	exp.PaidAt = &now
	l.metrics.LedgerTransitions.WithLabelValues(policy.ResourceExpense, "pay").Inc()
	logger.Infof("expense %d paid by user %d", id, caller.UserID)
	l.fanout.Publish(ctx, Event{Kind: EventExpensePaid, Resident: exp.Resident, Expense: exp})
	return exp, nil
}

// List returns the visible expenses, newest issue date first. A non-empty
// status restricts the result to that status.
func (l *ExpenseLedger) List(ctx context.Context, caller policy.Caller, status models.ExpenseStatus) ([]models.Expense, error) {
	if err := l.access.Authorize(ctx, caller, gate.ActionList, policy.ResourceExpense, nil); err != nil {
		return nil, err
	}
	q := l.access.ScopeOf(caller).Apply(l.db.WithContext(ctx), "resident_id")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Expense
	if err := q.Order("issue_date DESC, id DESC").Find(&out).Error; err != nil {
		return nil, errors.Annotate(err, "listing expenses")
	}
	return out, nil
}

func (l *ExpenseLedger) ListPending(ctx context.Context, caller policy.Caller) ([]models.Expense, error) {
	return l.List(ctx, caller, models.ExpenseStatusPending)
}

func (l *ExpenseLedger) ListPaid(ctx context.Context, caller policy.Caller) ([]models.Expense, error) {
	return l.List(ctx, caller, models.ExpenseStatusPaid)
}

// Statistics counts and sums the whole ledger. Admin only.
func (l *ExpenseLedger) Statistics(ctx context.Context, caller policy.Caller) (*ExpenseStatistics, error) {
	if err := l.access.Authorize(ctx, caller, gate.ActionStatistics, policy.ResourceExpense, nil); err != nil {
		return nil, err
	}
	rows, err := groupByStatus(l.db.WithContext(ctx).Model(&models.Expense{}))
	if err != nil {
		return nil, err
	}
	stats := &ExpenseStatistics{}
	for _, r := range rows {
		stats.Total += r.Count
		switch models.ExpenseStatus(r.Status) {
		case models.ExpenseStatusPending:
			stats.Pending = r.Count
			stats.PendingAmount = models.Amount(r.Total)
		case models.ExpenseStatusPaid:
			stats.Paid = r.Count
			stats.PaidAmount = models.Amount(r.Total)
		}
	}
	return stats, nil
}

// NotifyOverdue sends one overdue notice to the resident of every pending
// expense whose due date has passed. Expenses already notified are skipped,
// so running it repeatedly is safe. It returns the number of notices sent.
func (l *ExpenseLedger) NotifyOverdue(ctx context.Context) (int, error) {
	today := models.DateOf(l.clock.Now())
	var due []models.Expense
	err := l.db.WithContext(ctx).
		Preload("Resident").
		Where("status = ? AND due_date < ?", models.ExpenseStatusPending, today).
		Where("NOT EXISTS (SELECT 1 FROM notifications n WHERE n.object_id = expenses.id AND n.object_type = ? AND n.type = ?)",
			models.ObjectExpense, models.NotificationExpenseOverdue).
		Order("id").
		Find(&due).Error
	if err != nil {
		return 0, errors.Annotate(err, "listing overdue expenses")
	}
	sent := 0
	for i := range due {
		exp := &due[i]
		if len(l.fanout.Publish(ctx, Event{Kind: EventExpenseOverdue, Resident: exp.Resident, Expense: exp})) > 0 {
			sent++
		}
	}
	if sent > 0 {
		logger.Infof("sent %d overdue expense notices", sent)
	}
	return sent, nil
}
