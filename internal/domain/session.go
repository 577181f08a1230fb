package domain

import (
	"context"
	"time"
)

// User is the denormalized summary of the authenticated upstream account.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender"`
	Image     string `json:"image"`
}

// FullName joins the first and last name for display.
func (u User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Session is the console's record of a live login: the upstream bearer
// credential plus the user it belongs to. At most one exists per process.
type Session struct {
	ID           string
	AccessToken  string
	RefreshToken string
	User         User
	CreatedAt    time.Time
}

// SessionRepository defines optional persistence for the single session so
// a console restart does not force a re-login. Load returns ErrNotFound
// when no session has been saved.
type SessionRepository interface {
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context) (*Session, error)
	Delete(ctx context.Context) error
}
