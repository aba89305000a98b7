package services

import (
	"context"
	"fmt"
	"time"

	"github.com/diewo77/cuentas-claras/internal/metrics"
	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"gorm.io/gorm"
)

// EventKind names a ledger or account event that produces notifications.
type EventKind string

const (
	EventExpenseCreated EventKind = "expense_created"
	EventExpensePaid    EventKind = "expense_paid"
	EventExpenseOverdue EventKind = "expense_overdue"
	EventFineCreated    EventKind = "fine_created"
	EventFinePaid       EventKind = "fine_paid"
	EventFineVoided     EventKind = "fine_annulled"
	EventUserCreated    EventKind = "user_created"
)

// Event is published by a service after its mutation committed.
// Resident is the owning resident (or the new account for EventUserCreated);
// exactly one of Expense or Fine is set for ledger events.
type Event struct {
	Kind     EventKind
	Resident *models.User
	Expense  *models.Expense
	Fine     *models.Fine
}

// Fanout turns events into notification rows.
//
// Created and paid events notify the resident and every administrator.
// Voided fines and overdue expenses notify the resident only. Rows of one
// event are written in a single transaction, after the ledger mutation has
// committed; a failure is logged and counted but never reported back to
// the caller of the ledger operation.
type Fanout struct {
	db      *gorm.DB
	clock   clock.Clock
	metrics *metrics.Metrics
}

// NewFanout creates a fanout writing through env.DB.
func NewFanout(env Env) *Fanout {
	env = env.withDefaults()
	return &Fanout{db: env.DB, clock: env.Clock, metrics: env.Metrics}
}

// Publish writes the notifications of ev and returns them. It returns nil
// when the event produced nothing or could not be written.
func (f *Fanout) Publish(ctx context.Context, ev Event) []models.Notification {
	// The ledger change is already committed; finish even if the client went away.
	ctx = context.WithoutCancel(ctx)

	var created []models.Notification
	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := f.build(tx, ev)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return errors.Annotate(err, "inserting notifications")
		}
		created = rows
		return nil
	})
	if err != nil {
		logger.Errorf("notification fanout %s failed: %v", ev.Kind, err)
		f.metrics.FanoutFailures.WithLabelValues(string(ev.Kind)).Inc()
		return nil
	}
	for _, n := range created {
		f.metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	}
	logger.Debugf("fanout %s wrote %d notifications", ev.Kind, len(created))
	return created
}

// notice is a notification template before its recipient is known.
type notice struct {
	typ        models.NotificationType
	title      string
	message    string
	objectID   uint
	objectType string
}

func (f *Fanout) build(tx *gorm.DB, ev Event) ([]models.Notification, error) {
	if ev.Resident == nil {
		return nil, errors.Errorf("event %s without resident", ev.Kind)
	}
	r := ev.Resident
	var toResident, toAdmins *notice

	switch ev.Kind {
	case EventFineCreated, EventFinePaid, EventFineVoided:
		if ev.Fine == nil {
			return nil, errors.Errorf("event %s without fine", ev.Kind)
		}
		fine := ev.Fine
		mk := func(typ models.NotificationType, title, msg string) *notice {
			return &notice{typ: typ, title: title, message: msg, objectID: fine.ID, objectType: models.ObjectFine}
		}
		switch ev.Kind {
		case EventFineCreated:
			toResident = mk(models.NotificationFineCreated, "Nueva multa registrada",
				fmt.Sprintf("Se ha registrado una multa por %s por un valor de %s.", fine.Reason, fine.Amount.Display()))
			toAdmins = mk(models.NotificationFineCreated, "Nueva multa generada",
				fmt.Sprintf("Se ha generado una multa para %s por %s.", r.Username, fine.Reason))
		case EventFinePaid:
			toResident = mk(models.NotificationFinePaid, "Multa pagada correctamente",
				fmt.Sprintf("Su multa por %s ha sido registrada como pagada.", fine.Reason))
			toAdmins = mk(models.NotificationFinePaid, "Multa pagada por residente",
				fmt.Sprintf("La multa de %s por %s ha sido pagada.", r.Username, fine.Reason))
		case EventFineVoided:
			toResident = mk(models.NotificationFineVoided, "Multa anulada",
				fmt.Sprintf("Su multa por %s ha sido anulada.", fine.Reason))
		}

	case EventExpenseCreated, EventExpensePaid, EventExpenseOverdue:
		if ev.Expense == nil {
			return nil, errors.Errorf("event %s without expense", ev.Kind)
		}
		exp := ev.Expense
		mk := func(typ models.NotificationType, title, msg string) *notice {
			return &notice{typ: typ, title: title, message: msg, objectID: exp.ID, objectType: models.ObjectExpense}
		}
		switch ev.Kind {
		case EventExpenseCreated:
			toResident = mk(models.NotificationExpenseCreated, "Nuevo gasto común registrado",
				fmt.Sprintf("Se ha registrado un gasto común por %s correspondiente a %s.", exp.Amount.Display(), exp.Concept))
			toAdmins = mk(models.NotificationExpenseCreated, "Nuevo gasto común generado",
				fmt.Sprintf("Se ha generado un gasto común para %s por %s.", r.Username, exp.Amount.Display()))
		case EventExpensePaid:
			toResident = mk(models.NotificationExpensePaid, "Gasto común pagado correctamente",
				fmt.Sprintf("Su gasto común por %s ha sido registrado como pagado.", exp.Concept))
			toAdmins = mk(models.NotificationExpensePaid, "Gasto común pagado por residente",
				fmt.Sprintf("El gasto común de %s por %s ha sido pagado.", r.Username, exp.Concept))
		case EventExpenseOverdue:
			toResident = mk(models.NotificationExpenseOverdue, "Gasto común vencido",
				fmt.Sprintf("Su gasto común por %s venció el %s y sigue pendiente.", exp.Concept, exp.DueDate.Format("02/01/2006")))
		}

	case EventUserCreated:
		toResident = &notice{
			typ:        models.NotificationUserCreated,
			title:      "Bienvenido a Cuentas Claras",
			message:    fmt.Sprintf("Su cuenta %s ha sido creada.", r.Username),
			objectID:   r.ID,
			objectType: models.ObjectUser,
		}

	default:
		return nil, errors.NotSupportedf("event %q", ev.Kind)
	}

	now := f.clock.Now()
	var rows []models.Notification
	if toResident != nil {
		rows = append(rows, toResident.to(r.ID, now))
	}
	if toAdmins != nil {
		var adminIDs []uint
		if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Order("id").Pluck("id", &adminIDs).Error; err != nil {
			return nil, errors.Annotate(err, "listing administrators")
		}
		for _, id := range adminIDs {
			rows = append(rows, toAdmins.to(id, now))
		}
	}
	return rows, nil
}

func (n *notice) to(userID uint, now time.Time) models.Notification {
	uid, oid := userID, n.objectID
	return models.Notification{
		CreatedAt:  now,
		UserID:     &uid,
		Type:       n.typ,
		Title:      n.title,
		Message:    n.message,
		ObjectID:   &oid,
		ObjectType: n.objectType,
	}
}
