package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// slotID is the fixed primary key of the single session row
const slotID = 1

// PostgresStore implements SessionStore with a single-row PostgreSQL slot,
// for deployments where the session core runs server-side
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
	}
}

// SessionSchema represents the auth_session slot table schema
type SessionSchema struct {
	bun.BaseModel `bun:"table:auth_session,alias:s"`

	Slot          int       `bun:"slot,pk" json:"slot"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	Email         string    `bun:"email,notnull" json:"email"`
	Name          string    `bun:"name,notnull" json:"name"`
	UserCreatedAt time.Time `bun:"user_created_at,notnull" json:"user_created_at"`
	LastLogin     time.Time `bun:"last_login,notnull" json:"last_login"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
}

// CreateSchema creates the slot table if it does not exist
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*SessionSchema)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create auth_session table: %w", err)
	}
	return nil
}

// Read retrieves the stored session, or (nil, nil) when the slot is empty
func (s *PostgresStore) Read(ctx context.Context) (*Session, error) {
	var schema SessionSchema
	err := s.db.NewSelect().
		Model(&schema).
		Where("slot = ?", slotID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session slot: %w", err)
	}

	return schemaToSession(schema), nil
}

// Write upserts the session into the slot row, overwriting it entirely
func (s *PostgresStore) Write(ctx context.Context, session *Session) error {
	schema := &SessionSchema{
		Slot:          slotID,
		UserID:        session.User.ID,
		Email:         session.User.Email,
		Name:          session.User.Name,
		UserCreatedAt: session.User.CreatedAt,
		LastLogin:     session.User.LastLogin,
		ExpiresAt:     session.ExpiresAt,
	}

	_, err := s.db.NewInsert().
		Model(schema).
		On("CONFLICT (slot) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("email = EXCLUDED.email").
		Set("name = EXCLUDED.name").
		Set("user_created_at = EXCLUDED.user_created_at").
		Set("last_login = EXCLUDED.last_login").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to write session slot: %w", err)
	}

	return nil
}

// Clear deletes the slot row; an already-empty slot is not an error
func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*SessionSchema)(nil)).
		Where("slot = ?", slotID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear session slot: %w", err)
	}
	return nil
}

// schemaToSession converts the database schema to the session model
func schemaToSession(schema SessionSchema) *Session {
	return &Session{
		User: &User{
			ID:        schema.UserID,
			Email:     schema.Email,
			Name:      schema.Name,
			CreatedAt: schema.UserCreatedAt,
			LastLogin: schema.LastLogin,
		},
		ExpiresAt: schema.ExpiresAt,
	}
}
