package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mpetrashov/projecthub/internal/events"
	"github.com/mpetrashov/projecthub/internal/hash"
	"github.com/mpetrashov/projecthub/internal/logging"
	"github.com/mpetrashov/projecthub/internal/models"
	"github.com/mpetrashov/projecthub/internal/repo"
	"github.com/mpetrashov/projecthub/internal/tokens"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService orchestrates registration, login, refresh rotation and
// logout. A refresh token moves issued -> active -> consumed (deleted) or
// revoked; no transition brings a consumed or revoked token back.
type AuthService struct {
	Repo       repo.GormRepo
	Codec      *tokens.Codec
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Events     events.Publisher
}

func validateCredentials(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: email is not valid", ErrValidation)
	}
	if len(password) < 6 || len(password) > 255 {
		return fmt.Errorf("%w: password must be 6-255 characters", ErrValidation)
	}
	return nil
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_failed", "reason", "cannot hash password", "error", err)
		return nil, err
	}

	user, err := s.Repo.CreateUser(ctx, email, pwHash)
	if err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			l.Warn("register_failed", "reason", "email already registered")
			return nil, ErrDuplicateEmail
		}
		l.Error("register_failed", "error", err)
		return nil, err
	}

	s.publish(ctx, events.TopicUserEvents, strconv.FormatUint(uint64(user.ID), 10), map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
		"email":   user.Email,
	})

	return user, nil
}

// Authenticate returns ErrInvalidCredentials both when the email is unknown
// and when the password fails verification, so callers cannot tell the two
// apart.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// IssueTokenPair is the only place refresh tokens are minted. The refresh
// token's jti and expiry are persisted before the pair is returned.
func (s *AuthService) IssueTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	sub := strconv.FormatUint(uint64(user.ID), 10)

	access, err := s.Codec.Issue(sub, tokens.TypeAccess, s.AccessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := s.Codec.Issue(sub, tokens.TypeRefresh, s.RefreshTTL)
	if err != nil {
		return nil, err
	}

	claims, err := s.Codec.Parse(refresh)
	if err != nil {
		return nil, err
	}
	if _, err := s.Repo.SaveRefreshToken(ctx, claims.ID, user.ID, claims.ExpiresAt.Time); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a still-valid refresh token for a new pair exactly
// once. The stored row is authoritative for revocation and expiry, and the
// consumed token is deleted before reissuing. Reissue happens only if this
// call's delete removed the row, so of two concurrent refreshes with the
// same token exactly one wins.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Codec.Parse(presented)
	if err != nil || claims.Type != tokens.TypeRefresh || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	row, err := s.Repo.FindRefreshToken(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if row.Revoked {
		return nil, ErrTokenRevoked
	}
	if row.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}

	user, err := s.Repo.FindUserByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	deleted, err := s.Repo.DeleteRefreshToken(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		l.Warn("refresh_lost_race", "jti", claims.ID)
		return nil, ErrInvalidToken
	}

	return s.IssueTokenPair(ctx, user)
}

// Logout deletes the presented refresh token's row. An expired token still
// logs out (valid no-op intent); a malformed or badly signed token fails.
func (s *AuthService) Logout(ctx context.Context, presented string) error {
	claims, err := s.Codec.ParseAllowExpired(presented)
	if err != nil || claims.Type != tokens.TypeRefresh || claims.ID == "" {
		return ErrInvalidToken
	}
	if _, err := s.Repo.DeleteRefreshToken(ctx, claims.ID); err != nil {
		return err
	}
	return nil
}

func (s *AuthService) publish(ctx context.Context, topic, key string, event any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", topic, "error", err)
	}
}
