package entities

import (
	"errors"
	"strings"
	"time"
)

// User is a known chat identity, keyed by email. Users are created lazily
// the first time an email is referenced as a participant or sender and are
// never deleted by this service.
type User struct {
	email     string
	createdAt time.Time
}

// NewUser creates a user record for a previously unseen email
func NewUser(email string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("email is required")
	}
	if !strings.Contains(email, "@") {
		return nil, errors.New("email must contain @")
	}

	return &User{
		email:     email,
		createdAt: time.Now().UTC(),
	}, nil
}

// ReconstructUser rebuilds a user from stored state
func ReconstructUser(email string, createdAt time.Time) *User {
	return &User{
		email:     email,
		createdAt: createdAt,
	}
}

// Email returns the user's unique key
func (u *User) Email() string {
	return u.email
}

// CreatedAt returns when the user was first referenced
func (u *User) CreatedAt() time.Time {
	return u.createdAt
}
