package repo

import (
	"context"
	"errors"

	"github.com/mpetrashov/projecthub/internal/models"
)

var ErrEmailTaken = errors.New("email already taken")

func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user with the default role. A user with the same
// email must fail, not be overwritten.
func (r *GormRepo) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	user := models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
	}
	tx := r.DB.WithContext(ctx).Where("email = ?", email).FirstOrCreate(&user)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, ErrEmailTaken
	}
	return &user, nil
}
