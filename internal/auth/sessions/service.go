package sessions

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/finwise/finwise/internal/auth/validate"
)

// MinPasswordLength is the minimum accepted password length for login
const MinPasswordLength = 6

// MinNameLength is the minimum accepted display name length for signup
const MinNameLength = 2

// Config holds the session durations used by the service
type Config struct {
	DefaultTTL    time.Duration // session lifetime without remember-me
	RememberMeTTL time.Duration // session lifetime with remember-me
	ExpiringSoon  time.Duration // window for the expiry-proximity check
}

func (c Config) withDefaults() Config {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 24 * time.Hour
	}
	if c.RememberMeTTL <= 0 {
		c.RememberMeTTL = 30 * 24 * time.Hour
	}
	if c.ExpiringSoon <= 0 {
		c.ExpiringSoon = 5 * time.Minute
	}
	return c
}

// SessionService implements the SessionManager interface
type SessionService struct {
	store    SessionStore
	registry UserRegistry
	verifier CredentialVerifier
	logger   *zap.Logger
	cfg      Config

	// mu serializes mutating operations so two writers cannot race on the
	// single-slot store
	mu      sync.Mutex
	loading atomic.Bool

	errMu   sync.RWMutex
	lastErr string

	now func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(store SessionStore, registry UserRegistry, verifier CredentialVerifier, cfg Config, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		store:    store,
		registry: registry,
		verifier: verifier,
		logger:   logger,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// NewService creates a new session service (alias for NewSessionService)
func NewService(store SessionStore, registry UserRegistry, verifier CredentialVerifier, cfg Config, logger *zap.Logger) *SessionService {
	return NewSessionService(store, registry, verifier, cfg, logger)
}

// AuthState derives the current authentication state from the stored session.
// Expiry is evaluated lazily here: an expired session is cleared on read and
// reported as anonymous. Storage faults degrade to anonymous, never propagate.
func (s *SessionService) AuthState(ctx context.Context) AuthState {
	state := AuthState{
		IsLoading: s.loading.Load(),
		Error:     s.lastError(),
	}

	session, err := s.store.Read(ctx)
	if err != nil {
		s.logger.Warn("Failed to read session, treating as logged out", zap.Error(err))
		return state
	}
	if session == nil || session.User == nil {
		return state
	}

	if session.Expired(s.now()) {
		if err := s.store.Clear(ctx); err != nil {
			s.logger.Warn("Failed to clear expired session", zap.Error(err))
		}
		return state
	}

	expiry := session.ExpiresAt
	state.User = session.User
	state.IsAuthenticated = true
	state.SessionExpiry = &expiry
	return state
}

// Login validates the credentials, consults the credential verifier and
// persists a fresh session. The remember-me flag selects the long session
// duration.
func (s *SessionService) Login(ctx context.Context, req *LoginRequest) AuthResult {
	s.loading.Store(true)
	defer s.loading.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.setLastError("")

	if !validate.Email(req.Email) {
		return s.fail(NewValidationError("email", "please enter a valid email address"))
	}
	if len(req.Password) < MinPasswordLength {
		return s.fail(NewValidationError("password", "password must be at least 6 characters"))
	}

	if err := s.verifier.Verify(ctx, NormalizeEmail(req.Email), req.Password); err != nil {
		s.logger.Info("Credential verification rejected login", zap.String("email", NormalizeEmail(req.Email)))
		return s.fail(NewUnauthorizedError("invalid email or password"))
	}

	now := s.now()
	user := NewUser(req.Email, now)

	ttl := s.cfg.DefaultTTL
	if req.RememberMe {
		ttl = s.cfg.RememberMeTTL
	}

	session := &Session{User: user, ExpiresAt: now.Add(ttl)}
	if err := s.store.Write(ctx, session); err != nil {
		s.logger.Error("Failed to persist session on login", zap.Error(err))
		return s.fail(NewUnexpectedError(err))
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID),
		zap.Bool("remember_me", req.RememberMe),
		zap.Time("expires_at", session.ExpiresAt))
	return successResult(user)
}

// Signup validates the registration fields, checks the user registry for an
// existing account and persists a fresh session with the default duration.
func (s *SessionService) Signup(ctx context.Context, req *SignupRequest) AuthResult {
	s.loading.Store(true)
	defer s.loading.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.setLastError("")

	if len(req.Name) < MinNameLength {
		return s.fail(NewValidationError("name", "name must be at least 2 characters"))
	}
	if !validate.Email(req.Email) {
		return s.fail(NewValidationError("email", "please enter a valid email address"))
	}
	if pw := validate.Password(req.Password); !pw.IsValid {
		// only the first error surfaces through the state machine
		return s.fail(NewValidationError("password", pw.Errors[0]))
	}
	if req.Password != req.ConfirmPassword {
		return s.fail(NewValidationError("confirm_password", "passwords do not match"))
	}

	email := NormalizeEmail(req.Email)
	taken, err := s.registry.EmailTaken(ctx, email)
	if err != nil {
		s.logger.Error("Registry lookup failed during signup", zap.Error(err))
		return s.fail(NewUnexpectedError(err))
	}
	if taken {
		return s.fail(NewConflictError())
	}

	now := s.now()
	user := NewUser(req.Email, now)
	user.Name = req.Name

	// signup always uses the default duration, never the remember-me one
	session := &Session{User: user, ExpiresAt: now.Add(s.cfg.DefaultTTL)}
	if err := s.store.Write(ctx, session); err != nil {
		s.logger.Error("Failed to persist session on signup", zap.Error(err))
		return s.fail(NewUnexpectedError(err))
	}

	s.logger.Info("User signed up",
		zap.String("user_id", user.ID),
		zap.Time("expires_at", session.ExpiresAt))
	return successResult(user)
}

// Logout clears the stored session. It is idempotent and always returns to
// the anonymous state; a storage fault is logged and swallowed.
func (s *SessionService) Logout(ctx context.Context) AuthResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setLastError("")

	if err := s.store.Clear(ctx); err != nil {
		s.logger.Warn("Failed to clear session on logout", zap.Error(err))
	}
	return AuthResult{Success: true}
}

// RefreshSession extends an active session by the default duration. Refresh
// never escalates to the remember-me duration. Returns failure when no
// session is active.
func (s *SessionService) RefreshSession(ctx context.Context) AuthResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.AuthState(ctx)
	if !state.IsAuthenticated {
		return failureResult(NewUnauthorizedError("no active session to refresh"))
	}

	session := &Session{User: state.User, ExpiresAt: s.now().Add(s.cfg.DefaultTTL)}
	if err := s.store.Write(ctx, session); err != nil {
		s.logger.Error("Failed to persist refreshed session", zap.Error(err))
		return s.fail(NewUnexpectedError(err))
	}

	s.logger.Debug("Session refreshed",
		zap.String("user_id", state.User.ID),
		zap.Time("expires_at", session.ExpiresAt))
	return successResult(state.User)
}

// ExpiringSoon reports whether the current session lapses within the
// configured window. Pure read, no mutation.
func (s *SessionService) ExpiringSoon(ctx context.Context) bool {
	state := s.AuthState(ctx)
	if !state.IsAuthenticated || state.SessionExpiry == nil {
		return false
	}
	return state.SessionExpiry.Sub(s.now()) < s.cfg.ExpiringSoon
}

// ClearError discards the error message carried from the most recent failed
// operation
func (s *SessionService) ClearError() {
	s.setLastError("")
}

func (s *SessionService) fail(err *AuthError) AuthResult {
	if err.Cause != nil {
		s.logger.Error("Session operation failed", zap.String("type", err.Type), zap.Error(err.Cause))
	}
	s.setLastError(err.Message)
	return failureResult(err)
}

func (s *SessionService) setLastError(msg string) {
	s.errMu.Lock()
	s.lastErr = msg
	s.errMu.Unlock()
}

func (s *SessionService) lastError() string {
	s.errMu.RLock()
	defer s.errMu.RUnlock()
	return s.lastErr
}
