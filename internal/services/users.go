package services

import (
	"context"
	"strings"

	"github.com/diewo77/cuentas-claras/gate"
	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/diewo77/cuentas-claras/internal/policy"
	"github.com/diewo77/cuentas-claras/validation"
	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength is the only password policy enforced.
const MinPasswordLength = 8

// RegisterInput is the payload of an account registration.
type RegisterInput struct {
	Username        string      `json:"username"`
	Email           string      `json:"email"`
	FirstName       string      `json:"first_name"`
	LastName        string      `json:"last_name"`
	Password        string      `json:"password"`
	Password2       string      `json:"password2"`
	Role            models.Role `json:"role"`
	Phone           string      `json:"phone"`
	ResidenceNumber string      `json:"residence_number"`
}

// UserUpdate holds the profile fields a user may change. Nil fields are
// left untouched; username and role are not editable.
type UserUpdate struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	ResidenceNumber *string `json:"residence_number"`
}

// UserStatistics counts accounts per role.
type UserStatistics struct {
	Total     int64 `json:"total"`
	Admins    int64 `json:"admins"`
	Residents int64 `json:"residents"`
}

// Users is the identity and role store.
type Users struct {
	db       *gorm.DB
	access   *policy.AccessPolicy
	resolver *policy.DBCallerResolver
	fanout   *Fanout
	hashCost int
}

func NewUsers(env Env, fanout *Fanout) *Users {
	env = env.withDefaults()
	return &Users{
		db:       env.DB,
		access:   env.Access,
		resolver: policy.NewDBCallerResolver(env.DB),
		fanout:   fanout,
		hashCost: env.HashCost,
	}
}

// Caller resolves the current role of userID. A deleted user is
// errors.Unauthorized.
func (s *Users) Caller(ctx context.Context, userID uint) (policy.Caller, error) {
	return s.resolver.Resolve(ctx, userID)
}

// Authenticate checks a username and password pair.
func (s *Users) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Unauthorizedf("invalid credentials")
	}
	if err != nil {
		return nil, errors.Annotate(err, "loading user")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, errors.Unauthorizedf("invalid credentials")
	}
	return &u, nil
}

// Register creates an account. Admin only; the role defaults to resident.
func (s *Users) Register(ctx context.Context, caller policy.Caller, in RegisterInput) (*models.User, error) {
	if err := s.access.Authorize(ctx, caller, gate.ActionCreate, policy.ResourceUser, nil); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Role == "" {
		in.Role = models.RoleResident
	}

	v := validation.Violations{}
	validation.Required("username", in.Username, v)
	validation.MaxLength("username", in.Username, 150, v)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Required("first_name", in.FirstName, v)
	validation.Required("last_name", in.LastName, v)
	validation.MinLength("password", in.Password, MinPasswordLength, v)
	if in.Password != in.Password2 {
		v.Add("password2", "password_mismatch")
	}
	if !in.Role.Valid() {
		v.Add("role", "invalid_role")
	}
	validation.MaxLength("phone", in.Phone, 20, v)
	validation.MaxLength("residence_number", in.ResidenceNumber, 10, v)
	if in.Username != "" {
		var taken int64
		if err := db.Model(&models.User{}).Where("username = ?", in.Username).Count(&taken).Error; err != nil {
			return nil, errors.Annotate(err, "checking username")
		}
		if taken > 0 {
			v.Add("username", "already_taken")
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, errors.Annotate(err, "hashing password")
	}
	u := &models.User{
		Username:        in.Username,
		Email:           in.Email,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Password:        string(hash),
		Role:            in.Role,
		Phone:           in.Phone,
		ResidenceNumber: in.ResidenceNumber,
	}
	if err := db.Create(u).Error; err != nil {
		return nil, errors.Annotate(err, "creating user")
	}
	logger.Infof("user %q (%s) registered by user %d", u.Username, u.Role, caller.UserID)
	s.fanout.Publish(ctx, Event{Kind: EventUserCreated, Resident: u})
	return u, nil
}

// List returns every account ordered by username. Admin only.
func (s *Users) List(ctx context.Context, caller policy.Caller) ([]models.User, error) {
	return s.list(ctx, caller, "")
}

// ListResidents returns the resident accounts. Admin only.
func (s *Users) ListResidents(ctx context.Context, caller policy.Caller) ([]models.User, error) {
	return s.list(ctx, caller, models.RoleResident)
}

func (s *Users) list(ctx context.Context, caller policy.Caller, role models.Role) ([]models.User, error) {
	if err := s.access.Authorize(ctx, caller, gate.ActionList, policy.ResourceUser, nil); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var out []models.User
	if err := q.Order("username").Find(&out).Error; err != nil {
		return nil, errors.Annotate(err, "listing users")
	}
	return out, nil
}

func (s *Users) find(ctx context.Context, caller policy.Caller, id uint, action gate.Action) (*models.User, error) {
	var u models.User
	q := s.access.ScopeOf(caller).Apply(s.db.WithContext(ctx), "id")
	if err := q.First(&u, id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	if err := s.access.Authorize(ctx, caller, action, policy.ResourceUser, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Get returns an account; residents may only see their own.
func (s *Users) Get(ctx context.Context, caller policy.Caller, id uint) (*models.User, error) {
	return s.find(ctx, caller, id, gate.ActionView)
}

// Me returns the caller's own account.
func (s *Users) Me(ctx context.Context, caller policy.Caller) (*models.User, error) {
	return s.Get(ctx, caller, caller.UserID)
}

// Update changes profile fields of an account (own account, or any for admins).
func (s *Users) Update(ctx context.Context, caller policy.Caller, id uint, in UserUpdate) (*models.User, error) {
	u, err := s.find(ctx, caller, id, gate.ActionUpdate)
	if err != nil {
		return nil, err
	}

	v := validation.Violations{}
	updates := map[string]any{}
	set := func(column string, val *string, max int, required bool) {
		if val == nil {
			return
		}
		trimmed := strings.TrimSpace(*val)
		if required {
			validation.Required(column, trimmed, v)
		}
		validation.MaxLength(column, trimmed, max, v)
		updates[column] = trimmed
	}
	set("first_name", in.FirstName, 150, true)
	set("last_name", in.LastName, 150, true)
	set("email", in.Email, 255, true)
	set("phone", in.Phone, 20, false)
	set("residence_number", in.ResidenceNumber, 10, false)
	if in.Email != nil {
		validation.Email("email", strings.TrimSpace(*in.Email), v)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return u, nil
	}
	if err := s.db.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
		return nil, errors.Annotatef(err, "updating user %d", id)
	}
	return s.find(ctx, caller, id, gate.ActionView)
}

// ChangePassword replaces the caller's password after checking the old one.
func (s *Users) ChangePassword(ctx context.Context, caller policy.Caller, oldPassword, newPassword string) error {
	u, err := s.find(ctx, caller, caller.UserID, gate.ActionUpdate)
	if err != nil {
		return err
	}
	v := validation.Violations{}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(oldPassword)) != nil {
		v.Add("old_password", "password_wrong")
	}
	validation.MinLength("new_password", newPassword, MinPasswordLength, v)
	if err := v.Err(); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return errors.Annotate(err, "hashing password")
	}
	if err := s.db.WithContext(ctx).Model(u).Update("password", string(hash)).Error; err != nil {
		return errors.Annotatef(err, "updating password of user %d", u.ID)
	}
	logger.Infof("user %d changed their password", u.ID)
	return nil
}

// Delete removes an account together with its expenses, fines and
// notifications. Admin only.
func (s *Users) Delete(ctx context.Context, caller policy.Caller, id uint) error {
	if err := s.access.Authorize(ctx, caller, gate.ActionDelete, policy.ResourceUser, nil); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Select("id").First(&u, id).Error; err != nil {
			return notFound(err, "user", id)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return errors.Annotate(err, "deleting notifications")
		}
		if err := tx.Where("resident_id = ?", id).Delete(&models.Expense{}).Error; err != nil {
			return errors.Annotate(err, "deleting expenses")
		}
		if err := tx.Where("resident_id = ?", id).Delete(&models.Fine{}).Error; err != nil {
			return errors.Annotate(err, "deleting fines")
		}
		return errors.Annotate(tx.Delete(&u).Error, "deleting user")
	})
	if err != nil {
		return err
	}
	logger.Infof("user %d deleted by user %d", id, caller.UserID)
	return nil
}

// Statistics counts accounts per role. Admin only.
func (s *Users) Statistics(ctx context.Context, caller policy.Caller) (*UserStatistics, error) {
	if err := s.access.Authorize(ctx, caller, gate.ActionStatistics, policy.ResourceUser, nil); err != nil {
		return nil, err
	}
	var rows []struct {
		Role  models.Role
		Count int64
	}
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Annotate(err, "counting users")
	}
	stats := &UserStatistics{}
	for _, r := range rows {
		stats.Total += r.Count
		switch r.Role {
		case models.RoleAdmin:
			stats.Admins = r.Count
		case models.RoleResident:
			stats.Residents = r.Count
		}
	}
	return stats, nil
}
