package sessions

import "context"

// SessionManager defines the interface for session state machine operations
type SessionManager interface {
	AuthState(ctx context.Context) AuthState
	Login(ctx context.Context, req *LoginRequest) AuthResult
	Signup(ctx context.Context, req *SignupRequest) AuthResult
	Logout(ctx context.Context) AuthResult
	RefreshSession(ctx context.Context) AuthResult
	ExpiringSoon(ctx context.Context) bool
	ClearError()
}

// SessionStore defines the interface for single-slot session persistence.
// Read returns (nil, nil) when the slot is absent; implementations treat a
// malformed stored record as absent rather than returning it.
type SessionStore interface {
	Read(ctx context.Context) (*Session, error)
	Write(ctx context.Context, session *Session) error
	Clear(ctx context.Context) error
}

// UserRegistry is the pluggable uniqueness check consulted during signup
type UserRegistry interface {
	EmailTaken(ctx context.Context, email string) (bool, error)
}

// CredentialVerifier is the pluggable credential-check boundary consulted
// during login. The default implementation accepts any credentials; real
// deployments must substitute a genuine verifier.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) error
}
