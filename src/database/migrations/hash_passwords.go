package migrations

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tradejournal/src/model"
)

// hashPlaintextPasswords replaces any password that is not already a bcrypt
// hash with its bcrypt hash, so legacy accounts keep logging in with the same
// password.
func hashPlaintextPasswords(db *gorm.DB) error {
	var users []model.User
	if err := db.Find(&users).Error; err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	migrated := 0
	for _, u := range users {
		if u.Password == "" || isBcryptHash(u.Password) {
			continue
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for user %d: %w", u.ID, err)
		}

		if err := db.Model(&model.User{}).
			Where("id = ?", u.ID).
			Update("password", string(hashed)).Error; err != nil {
			return fmt.Errorf("update password for user %d: %w", u.ID, err)
		}
		migrated++
	}

	logrus.WithFields(map[string]interface{}{
		"migration": "00001_hash_plaintext_passwords",
		"users":     migrated,
	}).Info("[migrations] plaintext passwords hashed")

	return nil
}

func isBcryptHash(s string) bool {
	if !strings.HasPrefix(s, "$2") {
		return false
	}
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
