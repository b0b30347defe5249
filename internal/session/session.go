// Package session keeps per-client state behind a signed cookie. Handlers
// receive the session as a value and hand the mutated copy back to the
// Manager to persist it.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by a Store when the id is unknown or expired
var ErrNotFound = errors.New("session not found")

// Session is the per-client record
type Session struct {
	ID         string     `json:"id"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	LoggedIn   bool       `json:"logged_in"`
	CountVisit int        `json:"count_visit"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// New creates an anonymous session that expires after ttl
func New(ttl time.Duration) (Session, error) {
	id, err := generateID()
	if err != nil {
		return Session{}, err
	}
	now := time.Now()
	return Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Expired reports whether the session is past its expiry
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// RecordVisit returns s with the visit counter incremented. The counter is
// shared by every recipe viewed in the session.
func RecordVisit(s Session) Session {
	s.CountVisit++
	return s
}

// Authenticate returns a fresh logged-in session for userID under a new id
func Authenticate(userID uuid.UUID, ttl time.Duration) (Session, error) {
	next, err := New(ttl)
	if err != nil {
		return Session{}, err
	}
	next.UserID = &userID
	next.LoggedIn = true
	return next, nil
}

func generateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
