// Package identity tells the device whether a user is signed in.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Provider yields the signed-in user, or false for anonymous use.
type Provider interface {
	UserID() (uuid.UUID, bool)
}

// Anonymous is a Provider with nobody signed in.
type Anonymous struct{}

// UserID always reports anonymous.
func (Anonymous) UserID() (uuid.UUID, bool) { return uuid.Nil, false }

// Fixed is a Provider bound to one user.
type Fixed uuid.UUID

// UserID returns the bound user.
func (f Fixed) UserID() (uuid.UUID, bool) {
	id := uuid.UUID(f)
	return id, id != uuid.Nil
}

// Session is the persisted login of the device.
type Session struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DefaultPath returns the session file under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "drinkless", "session.json"), nil
}

// Save writes the session with owner-only permissions.
func Save(path string, s Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// Load reads the session file. A missing file reports os.ErrNotExist.
func Load(path string) (Session, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("session file: %w", err)
	}
	return s, nil
}

// Remove deletes the session file; a missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// TokenFile is a Provider backed by a saved session. The token signature
// is checked by the server; the device only reads the subject and expiry.
type TokenFile struct {
	Path string
	Now  func() time.Time
}

// UserID returns the session subject while the token is unexpired.
func (t TokenFile) UserID() (uuid.UUID, bool) {
	s, err := t.Session()
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.FromString(s.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Session returns the saved session if it is present and unexpired.
func (t TokenFile) Session() (Session, error) {
	s, err := Load(t.Path)
	if err != nil {
		return Session{}, err
	}
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, &claims); err != nil {
		return Session{}, fmt.Errorf("session token: %w", err)
	}
	if claims.ExpiresAt != nil && !now().Before(claims.ExpiresAt.Time) {
		return Session{}, errors.New("session expired")
	}
	if s.UserID == "" {
		s.UserID = claims.Subject
	}
	return s, nil
}
