package migrations

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DataMigration is one row of the data_migrations ledger. A row exists once
// the migration with that id has committed.
type DataMigration struct {
	ID        string    `gorm:"primaryKey;size:200;column:id"`
	AppliedAt time.Time `gorm:"not null;column:applied_at"`
}

func (DataMigration) TableName() string { return "data_migrations" }

type step struct {
	id    string
	apply func(*gorm.DB) error
}

// steps run in order. Ids are stored, never rename one that has shipped.
var steps = []step{
	{id: "00001_hash_plaintext_passwords", apply: hashPlaintextPasswords},
}

// RunOnce applies fn inside a transaction unless migrationID is already in
// the data_migrations table. The id is written in the same transaction, so a
// failed fn leaves no trace and is retried on the next start.
func RunOnce(db *gorm.DB, migrationID string, fn func(*gorm.DB) error) error {
	if db == nil {
		return nil
	}
	if migrationID == "" {
		return errors.New("migration id is empty")
	}
	if fn == nil {
		return fmt.Errorf("migration %q has nil fn", migrationID)
	}

	if err := db.AutoMigrate(&DataMigration{}); err != nil {
		return fmt.Errorf("create data_migrations: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&DataMigration{}).Where("id = ?", migrationID).Count(&count).Error; err != nil {
			return fmt.Errorf("check migration %q: %w", migrationID, err)
		}
		if count > 0 {
			return nil
		}

		if err := fn(tx); err != nil {
			return fmt.Errorf("run migration %q: %w", migrationID, err)
		}
		if err := tx.Create(&DataMigration{ID: migrationID, AppliedAt: time.Now().UTC()}).Error; err != nil {
			return fmt.Errorf("record migration %q: %w", migrationID, err)
		}

		logrus.WithField("migration", migrationID).Info("[migrations] applied")
		return nil
	})
}

// Run applies every pending data migration after the schema is in place.
func Run(db *gorm.DB) error {
	for _, s := range steps {
		if err := RunOnce(db, s.id, s.apply); err != nil {
			return err
		}
	}
	return nil
}
