package db

import (
	"github.com/diewo77/cuentas-claras/internal/models"
	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedAdmin describes the bootstrap administrator. Registration is
// admin-only, so a fresh store needs one account to start from.
type SeedAdmin struct {
	Username string
	Password string
	Email    string
}

// Seed creates the bootstrap administrator if it does not exist yet.
// It is idempotent and a no-op when no credentials are configured.
func Seed(db *gorm.DB, admin SeedAdmin) error {
	if admin.Username == "" || admin.Password == "" {
		log.Debugf("no bootstrap admin configured; skipping seed")
		return nil
	}
	var existing models.User
	err := db.Where("username = ?", admin.Username).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Annotate(err, "looking up bootstrap admin")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Annotate(err, "hashing bootstrap password")
	}
	user := models.User{
		Username: admin.Username,
		Email:    admin.Email,
		Password: string(hash),
		Role:     models.RoleAdmin,
	}
	if err := db.Create(&user).Error; err != nil {
		return errors.Annotate(err, "creating bootstrap admin")
	}
	log.Infof("created bootstrap admin %q", user.Username)
	return nil
}
