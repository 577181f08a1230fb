package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/recipe-console/internal/domain"
)

// sessionRepo stores the single console session as one row. Saving
// replaces any previous row; the table never holds more than one.
type sessionRepo struct {
	db *sql.DB
}

func (r *sessionRepo) Save(ctx context.Context, sess *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (slot, session_id, access_token, refresh_token,
			user_id, username, email, first_name, last_name, gender, image, created_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			session_id = excluded.session_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			user_id = excluded.user_id,
			username = excluded.username,
			email = excluded.email,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			gender = excluded.gender,
			image = excluded.image,
			created_at = excluded.created_at
	`, sess.ID, sess.AccessToken, sess.RefreshToken,
		sess.User.ID, sess.User.Username, sess.User.Email,
		sess.User.FirstName, sess.User.LastName, sess.User.Gender,
		sess.User.Image, sess.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *sessionRepo) Load(ctx context.Context) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT session_id, access_token, refresh_token,
			user_id, username, email, first_name, last_name, gender, image, created_at
		FROM sessions WHERE slot = 1
	`)

	var sess domain.Session
	var createdAt string
	err := row.Scan(&sess.ID, &sess.AccessToken, &sess.RefreshToken,
		&sess.User.ID, &sess.User.Username, &sess.User.Email,
		&sess.User.FirstName, &sess.User.LastName, &sess.User.Gender,
		&sess.User.Image, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		sess.CreatedAt = t
	}
	return &sess, nil
}

func (r *sessionRepo) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE slot = 1"); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
