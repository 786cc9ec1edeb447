package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/SkillMap/internal/models"
)

// SQLBackend stores one session row per profile in the sessions table
// (see internal/db). It works with both the postgres and sqlite drivers.
type SQLBackend struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
	// Profile selects the row.
	Profile string
	// PollInterval is how often Watch checks for external changes.
	PollInterval time.Duration

	log *zap.Logger
}

// NewSQLBackend creates a SQLBackend for profile.
func NewSQLBackend(db *sql.DB, profile string, poll time.Duration, log *zap.Logger) *SQLBackend {
	return &SQLBackend{DB: db, Profile: profile, PollInterval: poll, log: log}
}

func (b *SQLBackend) Load(ctx context.Context) (models.Session, error) {
	var (
		s       models.Session
		expires int64
	)
	err := b.DB.QueryRowContext(ctx, `
		SELECT token, username, expires_at FROM sessions WHERE profile = $1
	`, b.Profile).Scan(&s.Token, &s.Username, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}
	if expires > 0 {
		s.ExpiresAt = time.Unix(expires, 0)
	}
	return s, nil
}

func (b *SQLBackend) Save(ctx context.Context, s models.Session) error {
	var expires int64
	if !s.ExpiresAt.IsZero() {
		expires = s.ExpiresAt.Unix()
	}
	_, err := b.DB.ExecContext(ctx, `
		INSERT INTO sessions (profile, token, username, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (profile) DO UPDATE SET
			token = EXCLUDED.token,
			username = EXCLUDED.username,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`, b.Profile, s.Token, s.Username, expires, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (b *SQLBackend) Clear(ctx context.Context) error {
	if _, err := b.DB.ExecContext(ctx, `DELETE FROM sessions WHERE profile = $1`, b.Profile); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Watch polls the row's updated_at and reports any change, including
// the row disappearing.
func (b *SQLBackend) Watch(ctx context.Context, onChange func()) error {
	last, err := b.stamp(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(b.PollInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cur, err := b.stamp(ctx)
				if err != nil {
					if ctx.Err() == nil {
						b.log.Warn("session poll failed", zap.Error(err))
					}
					continue
				}
				if cur != last {
					last = cur
					onChange()
				}
			}
		}
	}()
	return nil
}

func (b *SQLBackend) stamp(ctx context.Context) (int64, error) {
	var v int64
	err := b.DB.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(updated_at), 0) FROM sessions WHERE profile = $1
	`, b.Profile).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("poll session: %w", err)
	}
	return v, nil
}
