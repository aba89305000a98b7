package models

import (
	"strings"
	"time"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleResident Role = "resident"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleResident
}

// User represents a condominium account: an administrator or a resident.
// Implements the Ownable interface; a user owns their own record.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username  string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email     string `gorm:"size:255" json:"email"`
	FirstName string `gorm:"size:150" json:"first_name"`
	LastName  string `gorm:"size:150" json:"last_name"`
	Password  string `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON

	Role            Role   `gorm:"size:20;not null;default:'resident';index" json:"role"`
	Phone           string `gorm:"size:20" json:"phone"`
	ResidenceNumber string `gorm:"size:10" json:"residence_number"`
}

// GetUserID implements the Ownable interface for authorization.
func (u *User) GetUserID() uint {
	return u.ID
}

func (u *User) IsAdmin() bool    { return u.Role == RoleAdmin }
func (u *User) IsResident() bool { return u.Role == RoleResident }

// DisplayName returns "First Last", or the username when both are empty.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Username
}

// UserSummary is the nested view of a resident embedded in ledger details.
type UserSummary struct {
	ID              uint   `json:"id"`
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	ResidenceNumber string `json:"residence_number"`
}

// Summary returns the nested view of u, or nil when u is nil.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:              u.ID,
		Username:        u.Username,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		ResidenceNumber: u.ResidenceNumber,
	}
}
