package models

import "time"

// ExpenseStatus represents the status of a common expense.
type ExpenseStatus string

const (
	ExpenseStatusPending ExpenseStatus = "pending"
	ExpenseStatusPaid    ExpenseStatus = "paid"
)

// Expense is a common expense charged to a resident.
// Implements the Ownable interface for ownership-based authorization.
type Expense struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ResidentID is the owner of this expense; the user must have the resident role.
	ResidentID uint  `gorm:"index;not null" json:"resident_id"`
	Resident   *User `gorm:"foreignKey:ResidentID;constraint:OnDelete:CASCADE" json:"-"`

	Concept     string `gorm:"size:100;not null" json:"concept"`
	Description string `gorm:"type:text" json:"description"`
	Amount      Amount `gorm:"not null" json:"amount"`

	Status    ExpenseStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	IssueDate Date          `gorm:"not null;index" json:"issue_date"`
	DueDate   Date          `gorm:"not null" json:"due_date"`
	// PaidAt is set in the same write that moves Status to paid.
	PaidAt *time.Time `json:"paid_at"`
}

// GetUserID implements the Ownable interface for authorization.
func (e *Expense) GetUserID() uint {
	return e.ResidentID
}

func (e *Expense) IsPending() bool { return e.Status == ExpenseStatusPending }
func (e *Expense) IsPaid() bool    { return e.Status == ExpenseStatusPaid }

// IsOverdue reports whether the expense is still pending after its due date.
func (e *Expense) IsOverdue(today Date) bool {
	return e.IsPending() && e.DueDate.Before(today)
}
