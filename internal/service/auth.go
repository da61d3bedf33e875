// Package service contains application services for accounts and profiles.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/drinkless/internal/crypto"
	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/model"
	"github.com/and161185/drinkless/internal/repository"
)

// AuthService defines account operations.
type AuthService interface {
	// Register creates a new user with secure password hashing.
	Register(ctx context.Context, username, password string) (userID string, err error)
	// Login authenticates the user and issues an access token.
	Login(ctx context.Context, username, password string) (tokens model.Tokens, user model.User, err error)
	// VerifyToken checks an access token and returns its subject.
	VerifyToken(token string) (uuid.UUID, error)
	// DeleteAccount removes the user and its profile.
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	profiles  repository.ProfileRepository
	signKey   []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, profiles repository.ProfileRepository, signKey []byte, accessTTL time.Duration) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, profiles: profiles, signKey: signKey, accessTTL: accessTTL, now: time.Now}
}

// Register creates a new user record with a per-user salt.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", fmt.Errorf("%w: empty username/password", errs.ErrValidation)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	salt, err := pkgcrypto.NewSalt()
	if err != nil {
		return "", err
	}
	u := &model.User{
		ID:       uid,
		Username: username,
		PwdHash:  pkgcrypto.HashPassword([]byte(password), salt),
		SaltAuth: salt,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return "", err
	}
	return uid.String(), nil
}

// Login checks the password and issues an access token.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (model.Tokens, model.User, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Tokens{}, model.User{}, errs.ErrUnauthorized
		}
		return model.Tokens{}, model.User{}, err
	}
	if !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}
	access, exp, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, *u, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

// VerifyToken validates an HS256 token and returns its subject as a UUID.
func (s *AuthServiceImpl) VerifyToken(token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	}, jwt.WithLeeway(30*time.Second), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return uuid.Nil, errs.ErrUnauthorized
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return id, nil
}

// DeleteAccount removes the profile first, then the user.
func (s *AuthServiceImpl) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	if err := s.profiles.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
