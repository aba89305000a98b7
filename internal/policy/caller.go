package policy

import (
	"context"

	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/juju/errors"
	"gorm.io/gorm"
)

// Caller is the authenticated subject of a request: who is asking and with
// which role. It is passed explicitly to every ledger operation.
type Caller struct {
	UserID uint
	Role   models.Role
}

func (c Caller) IsAdmin() bool { return c.Role == models.RoleAdmin }

// CallerOf builds the caller for a loaded user.
func CallerOf(u *models.User) Caller {
	return Caller{UserID: u.ID, Role: u.Role}
}

// DBCallerResolver reads the caller's current role from the store.
// Nothing is cached: a role change applies to the very next request.
type DBCallerResolver struct {
	DB *gorm.DB
}

// NewDBCallerResolver creates a new database-backed caller resolver.
func NewDBCallerResolver(db *gorm.DB) *DBCallerResolver {
	return &DBCallerResolver{DB: db}
}

// Resolve loads the caller for userID. A user that no longer exists is
// reported as Unauthorized.
func (r *DBCallerResolver) Resolve(ctx context.Context, userID uint) (Caller, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Select("id", "role").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Caller{}, errors.Unauthorizedf("user %d", userID)
	}
	if err != nil {
		return Caller{}, errors.Annotatef(err, "resolving caller %d", userID)
	}
	return CallerOf(&user), nil
}
