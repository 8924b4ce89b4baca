package repo

import (
	"context"
	"errors"
	"time"

	"github.com/mpetrashov/projecthub/internal/models"
)

// ErrJTIConflict should not happen given the codec's random jti; the check
// exists so a collision surfaces instead of silently reusing a row.
var ErrJTIConflict = errors.New("refresh token already exists")

func (r *GormRepo) SaveRefreshToken(ctx context.Context, jti string, userID uint, expiresAt time.Time) (*models.RefreshToken, error) {
	token := models.RefreshToken{
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	tx := r.DB.WithContext(ctx).Where("jti = ?", jti).FirstOrCreate(&token)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, ErrJTIConflict
	}
	return &token, nil
}

func (r *GormRepo) FindRefreshToken(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("jti = ?", jti).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// RevokeRefreshToken marks the row revoked. Idempotent: already-revoked or
// absent rows are a no-op.
func (r *GormRepo) RevokeRefreshToken(ctx context.Context, jti string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("jti = ? AND revoked = ?", jti, false).
		Update("revoked", true).Error
}

// DeleteRefreshToken removes the row and reports whether one was deleted.
// Rotation reissues only after winning the delete, so two concurrent
// refreshes with the same token cannot both succeed.
func (r *GormRepo) DeleteRefreshToken(ctx context.Context, jti string) (bool, error) {
	res := r.DB.WithContext(ctx).Where("jti = ?", jti).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
