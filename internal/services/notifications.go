package services

import (
	"context"

	"github.com/diewo77/cuentas-claras/gate"
	"github.com/diewo77/cuentas-claras/i18n"
	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/diewo77/cuentas-claras/internal/policy"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"gorm.io/gorm"
)

// NotificationCenter is the read and housekeeping surface over
// notifications. Residents see their own; administrators see all,
// including system notices without a recipient.
type NotificationCenter struct {
	db     *gorm.DB
	access *policy.AccessPolicy
	clock  clock.Clock
}

func NewNotificationCenter(env Env) *NotificationCenter {
	env = env.withDefaults()
	return &NotificationCenter{db: env.DB, access: env.Access, clock: env.Clock}
}

func (c *NotificationCenter) scoped(ctx context.Context, caller policy.Caller) *gorm.DB {
	return c.access.ScopeOf(caller).Apply(c.db.WithContext(ctx).Model(&models.Notification{}), "user_id")
}

// List returns the visible notifications, newest first.
func (c *NotificationCenter) List(ctx context.Context, caller policy.Caller) ([]models.Notification, error) {
	if err := c.access.Authorize(ctx, caller, gate.ActionList, policy.ResourceNotification, nil); err != nil {
		return nil, err
	}
	var out []models.Notification
	if err := c.scoped(ctx, caller).Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, errors.Annotate(err, "listing notifications")
	}
	return out, nil
}

func (c *NotificationCenter) find(ctx context.Context, caller policy.Caller, id uint, action gate.Action) (*models.Notification, error) {
	var n models.Notification
	if err := c.scoped(ctx, caller).First(&n, id).Error; err != nil {
		return nil, notFound(err, "notification", id)
	}
	if err := c.access.Authorize(ctx, caller, action, policy.ResourceNotification, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Get returns one visible notification.
func (c *NotificationCenter) Get(ctx context.Context, caller policy.Caller, id uint) (*models.Notification, error) {
	return c.find(ctx, caller, id, gate.ActionView)
}

// MarkRead flags one notification as read. Marking twice is harmless.
func (c *NotificationCenter) MarkRead(ctx context.Context, caller policy.Caller, id uint) (*models.Notification, error) {
	n, err := c.find(ctx, caller, id, gate.ActionMarkRead)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}
	if err := c.db.WithContext(ctx).Model(n).Update("read", true).Error; err != nil {
		return nil, errors.Annotatef(err, "marking notification %d read", id)
	}
	n.Read = true
	return n, nil
}

// MarkAllRead flags every unread visible notification as read and returns
// how many changed.
func (c *NotificationCenter) MarkAllRead(ctx context.Context, caller policy.Caller) (int64, error) {
	if err := c.access.Authorize(ctx, caller, gate.ActionMarkRead, policy.ResourceNotification, nil); err != nil {
		return 0, err
	}
	res := c.scoped(ctx, caller).Where("read = ?", false).Update("read", true)
	if res.Error != nil {
		return 0, errors.Annotate(res.Error, "marking notifications read")
	}
	return res.RowsAffected, nil
}

// UnreadCount counts the unread visible notifications.
func (c *NotificationCenter) UnreadCount(ctx context.Context, caller policy.Caller) (int64, error) {
	if err := c.access.Authorize(ctx, caller, gate.ActionList, policy.ResourceNotification, nil); err != nil {
		return 0, err
	}
	var n int64
	if err := c.scoped(ctx, caller).Where("read = ?", false).Count(&n).Error; err != nil {
		return 0, errors.Annotate(err, "counting unread notifications")
	}
	return n, nil
}

// Delete removes a notification; only its recipient or an admin may.
func (c *NotificationCenter) Delete(ctx context.Context, caller policy.Caller, id uint) error {
	n, err := c.find(ctx, caller, id, gate.ActionDelete)
	if err != nil {
		return err
	}
	if err := c.db.WithContext(ctx).Delete(n).Error; err != nil {
		return errors.Annotatef(err, "deleting notification %d", id)
	}
	return nil
}

// Age renders how long ago n was created, in lang.
func (c *NotificationCenter) Age(lang string, n *models.Notification) string {
	return i18n.RelativeAge(lang, n.CreatedAt, c.clock.Now())
}
