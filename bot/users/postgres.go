package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, chat_id, name, handle, created_at, updated_at`

// PostgresStore keeps users in the users table created by migrations/.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FindAll returns every record in creation order.
func (s *PostgresStore) FindAll(ctx context.Context) ([]User, error) {
	var out []User
	if err := s.db.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	return out, nil
}

// FindByChatID returns the oldest record for chatID.
func (s *PostgresStore) FindByChatID(ctx context.Context, chatID int64) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE chat_id = $1 ORDER BY created_at LIMIT 1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user %d: %w", chatID, err)
	}
	return &u, nil
}

// Create inserts u with a fresh UUID.
func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	if u == nil {
		return errors.New("nil user")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :chat_id, :name, :handle, :created_at, :updated_at)`, u)
	if err != nil {
		return fmt.Errorf("insert user %d: %w", u.ChatID, err)
	}
	return nil
}
