package sessions

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// userIDNamespace is the fixed namespace for deriving user IDs from emails.
// The same email always yields the same user ID.
var userIDNamespace = uuid.MustParse("9f2c1a4e-7d3b-4c8a-b1e6-2f0d5a8c4b7e")

// User represents the identity record of an authenticated user
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	LastLogin time.Time `json:"last_login"`
}

// NewUser synthesizes an identity record from an email address. The ID is a
// stable function of the normalized email; the display name is the
// capitalized local part.
func NewUser(email string, now time.Time) *User {
	normalized := NormalizeEmail(email)
	return &User{
		ID:        uuid.NewSHA1(userIDNamespace, []byte(normalized)).String(),
		Email:     normalized,
		Name:      displayName(normalized),
		CreatedAt: now,
		LastLogin: now,
	}
}

// NormalizeEmail lowercases and trims an email address for comparison and ID derivation
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func displayName(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		local = email[:at]
	}
	if local == "" {
		return local
	}
	return strings.ToUpper(local[:1]) + local[1:]
}

// Session is the single persisted authenticated-user record
type Session struct {
	User      *User     `json:"user"`
	ExpiresAt time.Time `json:"expiry"`
}

// Expired reports whether the session has lapsed at the given instant
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// AuthState is the derived view of the current session; it is recomputed on
// every read and never persisted
type AuthState struct {
	User            *User      `json:"user,omitempty"`
	IsAuthenticated bool       `json:"is_authenticated"`
	IsLoading       bool       `json:"is_loading"`
	SessionExpiry   *time.Time `json:"session_expiry,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// LoginRequest carries the credentials for a login attempt
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// SignupRequest carries the fields for a new account registration
type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// AuthResult is the outcome of a mutating session operation. Operations never
// panic or leak internal faults; failures surface here as a code and a
// user-facing message.
type AuthResult struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}

func successResult(user *User) AuthResult {
	return AuthResult{Success: true, User: user}
}

func failureResult(err *AuthError) AuthResult {
	return AuthResult{Success: false, Code: err.Type, Message: err.Message}
}
