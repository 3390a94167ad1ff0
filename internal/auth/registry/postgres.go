package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// UserSchema represents the registered users table schema
type UserSchema struct {
	bun.BaseModel `bun:"table:auth_users,alias:u"`

	Email        string    `bun:"email,pk" json:"email"`
	Name         string    `bun:"name,notnull" json:"name"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// PostgresRegistry implements the user-registry lookup and the password-hash
// source against a PostgreSQL users table
type PostgresRegistry struct {
	db *bun.DB
}

// NewPostgresRegistry creates a new PostgreSQL-backed registry
func NewPostgresRegistry(db *bun.DB) *PostgresRegistry {
	return &PostgresRegistry{
		db: db,
	}
}

// CreateSchema creates the users table if it does not exist
func (r *PostgresRegistry) CreateSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*UserSchema)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create auth_users table: %w", err)
	}
	return nil
}

// RegisterUser stores a new user with a bcrypt hash of the password
func (r *PostgresRegistry) RegisterUser(ctx context.Context, email, name, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	schema := &UserSchema{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	_, err = r.db.NewInsert().
		Model(schema).
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return fmt.Errorf("user already exists with email: %s", schema.Email)
		}
		return fmt.Errorf("failed to register user: %w", err)
	}

	return nil
}

// EmailTaken reports whether a user with the email is already registered
func (r *PostgresRegistry) EmailTaken(ctx context.Context, email string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*UserSchema)(nil)).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// PasswordHash returns the stored bcrypt hash for the email
func (r *PostgresRegistry) PasswordHash(ctx context.Context, email string) (string, error) {
	var schema UserSchema
	err := r.db.NewSelect().
		Model(&schema).
		Column("password_hash").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("no user registered with email: %s", email)
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	return schema.PasswordHash, nil
}
