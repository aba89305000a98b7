package models

import "time"

// FineStatus represents the status of a fine. Paid and voided are terminal.
type FineStatus string

const (
	FineStatusPending FineStatus = "pending"
	FineStatusPaid    FineStatus = "paid"
	FineStatusVoided  FineStatus = "voided"
)

// Fine is a penalty charged to a resident.
// Implements the Ownable interface for ownership-based authorization.
type Fine struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// CreatedAt is set once by the ledger and never updated.
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ResidentID uint  `gorm:"index;not null" json:"resident_id"`
	Resident   *User `gorm:"foreignKey:ResidentID;constraint:OnDelete:CASCADE" json:"-"`

	Reason      string `gorm:"size:100;not null" json:"reason"`
	Description string `gorm:"type:text" json:"description"`
	Amount      Amount `gorm:"not null" json:"amount"`

	Status FineStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	PaidAt *time.Time `json:"paid_at"`
}

// GetUserID implements the Ownable interface for authorization.
func (f *Fine) GetUserID() uint {
	return f.ResidentID
}

func (f *Fine) IsPending() bool { return f.Status == FineStatusPending }

// IsTerminal returns true once the fine has been paid or voided.
func (f *Fine) IsTerminal() bool {
	return f.Status == FineStatusPaid || f.Status == FineStatusVoided
}
