package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradejournal/src/model"
)

var ErrUsernameTaken = errors.New("username already taken")

type GormUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *GormUserRepository {
	logger.WithField("component", "GormUserRepository").
		Debug("Creating new GormUserRepository")

	return &GormUserRepository{db: db}
}

// GetUserByUserName returns (nil, nil) when no such user exists.
func (r *GormUserRepository) GetUserByUserName(
	ctx context.Context,
	userName string,
) (*model.User, error) {

	var u model.User
	err := r.db.WithContext(ctx).
		Where("user_name = ?", userName).
		First(&u).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &u, nil
}

// FindByID returns (nil, nil) when no such user exists.
func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a user. A duplicate username yields ErrUsernameTaken.
func (r *GormUserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUsernameTaken
	}
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "GormUserRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create user")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":    "GormUserRepository",
		"op":      "Create",
		"user_id": u.ID,
	}).Info("User created")

	return nil
}

func (r *GormUserRepository) Update(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

// ListAll returns every user ordered by id.
func (r *GormUserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
