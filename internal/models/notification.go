package models

import "time"

// NotificationType is the closed set of notification tags.
type NotificationType string

const (
	NotificationFineCreated    NotificationType = "multa_creada"
	NotificationFinePaid       NotificationType = "multa_pagada"
	NotificationFineVoided     NotificationType = "multa_anulada"
	NotificationExpenseCreated NotificationType = "gasto_creado"
	NotificationExpensePaid    NotificationType = "gasto_pagado"
	NotificationExpenseOverdue NotificationType = "gasto_vencido"
	NotificationUserCreated    NotificationType = "usuario_creado"
	NotificationSystem         NotificationType = "sistema"
)

// Object type tags identifying the record a notification points at.
const (
	ObjectFine    = "multa"
	ObjectExpense = "gasto_comun"
	ObjectUser    = "usuario"
)

// Notification is an in-app notice addressed to one user.
// A nil UserID is a system-wide notice, visible to administrators only.
type Notification struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// CreatedAt is immutable.
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID *uint `gorm:"index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	Type    NotificationType `gorm:"size:20;not null" json:"type"`
	Title   string           `gorm:"size:100;not null" json:"title"`
	Message string           `gorm:"type:text;not null" json:"message"`
	Read    bool             `gorm:"not null;default:false;index" json:"read"`

	ObjectID   *uint  `json:"object_id"`
	ObjectType string `gorm:"size:20" json:"object_type,omitempty"`
}

// GetUserID implements the Ownable interface; system notices have no owner.
func (n *Notification) GetUserID() uint {
	if n.UserID == nil {
		return 0
	}
	return *n.UserID
}
