package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finwise/finwise/internal/auth/registry"
)

type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(ctx context.Context, email, password string) error { return nil }

type failingStore struct{}

func (failingStore) Read(ctx context.Context) (*Session, error) { return nil, errors.New("boom") }
func (failingStore) Write(ctx context.Context, s *Session) error {
	return errors.New("boom")
}
func (failingStore) Clear(ctx context.Context) error { return errors.New("boom") }

func newTestService(store SessionStore) *SessionService {
	reg := registry.NewStaticRegistry([]string{"admin@example.com", "user@example.com", "test@example.com"})
	return NewService(store, reg, acceptAllVerifier{}, Config{}, zap.NewNop())
}

func validLogin() *LoginRequest {
	return &LoginRequest{Email: "jane.doe@example.org", Password: "hunter42"}
}

func validSignup() *SignupRequest {
	return &SignupRequest{
		Name:            "Jane Doe",
		Email:           "jane.doe@example.org",
		Password:        "hunter42",
		ConfirmPassword: "hunter42",
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("ValidCredentialsAuthenticate", func(t *testing.T) {
		svc := newTestService(NewInMemoryStore())

		result := svc.Login(ctx, validLogin())
		require.True(t, result.Success)
		require.NotNil(t, result.User)
		assert.Equal(t, "jane.doe@example.org", result.User.Email)
		assert.Equal(t, "Jane.doe", result.User.Name)

		state := svc.AuthState(ctx)
		assert.True(t, state.IsAuthenticated)
		assert.NotNil(t, state.User)
		assert.Empty(t, state.Error)
	})

	t.Run("ShortPasswordFailsWithoutWrite", func(t *testing.T) {
		store := NewInMemoryStore()
		svc := newTestService(store)

		req := validLogin()
		req.Password = "abc12"
		result := svc.Login(ctx, req)
		require.False(t, result.Success)
		assert.Equal(t, ErrorTypeValidationFailed, result.Code)
		assert.Contains(t, result.Message, "at least 6")

		session, err := store.Read(ctx)
		require.NoError(t, err)
		assert.Nil(t, session, "failed login must not create a session")
	})

	t.Run("InvalidEmailFailsFirst", func(t *testing.T) {
		svc := newTestService(NewInMemoryStore())

		result := svc.Login(ctx, &LoginRequest{Email: "not-an-email", Password: "ab"})
		require.False(t, result.Success)
		assert.Contains(t, result.Message, "email")
	})

	t.Run("UserIDIsStableForEmail", func(t *testing.T) {
		svc := newTestService(NewInMemoryStore())

		first := svc.Login(ctx, validLogin())
		require.True(t, first.Success)

		svc.Logout(ctx)

		req := validLogin()
		req.Email = "Jane.Doe@Example.ORG"
		second := svc.Login(ctx, req)
		require.True(t, second.Success)

		assert.Equal(t, first.User.ID, second.User.ID)
	})

	t.Run("RememberMeSelectsLongDuration", func(t *testing.T) {
		store := NewInMemoryStore()
		svc := newTestService(store)

		base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return base }

		result := svc.Login(ctx, validLogin())
		require.True(t, result.Success)
		session, err := store.Read(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.True(t, session.ExpiresAt.Equal(base.Add(24*time.Hour)))

		req := validLogin()
		req.RememberMe = true
		result = svc.Login(ctx, req)
		require.True(t, result.Success)
		session, err = store.Read(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.True(t, session.ExpiresAt.Equal(base.Add(30*24*time.Hour)))
	})

	t.Run("StorageFaultDegradesToGenericFailure", func(t *testing.T) {
		svc := newTestService(failingStore{})

		result := svc.Login(ctx, validLogin())
		require.False(t, result.Success)
		assert.Equal(t, ErrorTypeUnexpected, result.Code)
		assert.NotContains(t, result.Message, "boom", "internal cause must never be shown")
	})
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("ValidSignupAuthenticates", func(t *testing.T) {
		store := NewInMemoryStore()
		svc := newTestService(store)

		base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return base }

		result := svc.Signup(ctx, validSignup())
		require.True(t, result.Success)
		assert.Equal(t, "Jane Doe", result.User.Name)

		// signup always uses the default duration
		session, err := store.Read(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.True(t, session.ExpiresAt.Equal(base.Add(24*time.Hour)))
	})

	t.Run("ReservedEmailConflicts", func(t *testing.T) {
		svc := newTestService(NewInMemoryStore())

		req := validSignup()
		req.Email = "Admin@Example.com"
		result := svc.Signup(ctx, req)
		require.False(t, result.Success)
		assert.Equal(t, ErrorTypeConflict, result.Code)
		assert.Contains(t, result.Message, "already exists")
	})

	t.Run("ShortNameFailsFirst", func(t *testing.T) {
		svc := newTestService(NewInMemoryStore())

		req := validSignup()
		req.Name = "J"
		req.Email = "bad"
		result := svc.Signup(ctx, req)
		require.False(t, result.Success)
		assert.Contains(t, result.Message, "name")
	})

	t.Run("WeakPasswordSurfacesFirstError", func(t *testing.T) {
		svc := newTestService(NewInMemoryStore())

		req := validSignup()
		req.Password = "abcdef"
		req.ConfirmPassword = "abcdef"
		result := svc.Signup(ctx, req)
		require.False(t, result.Success)
		assert.Equal(t, ErrorTypeValidationFailed, result.Code)
		assert.Contains(t, result.Message, "number")
	})

	t.Run("ConfirmationMismatchFails", func(t *testing.T) {
		store := NewInMemoryStore()
		svc := newTestService(store)

		req := validSignup()
		req.ConfirmPassword = "hunter43"
		result := svc.Signup(ctx, req)
		require.False(t, result.Success)
		assert.Contains(t, result.Message, "match")

		session, err := store.Read(ctx)
		require.NoError(t, err)
		assert.Nil(t, session)
	})
}

func TestAuthState(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyStoreIsAnonymous", func(t *testing.T) {
		svc := newTestService(NewInMemoryStore())

		state := svc.AuthState(ctx)
		assert.False(t, state.IsAuthenticated)
		assert.Nil(t, state.User)
		assert.Nil(t, state.SessionExpiry)
	})

	t.Run("ExpiredSessionClearsSlot", func(t *testing.T) {
		store := NewInMemoryStore()
		svc := newTestService(store)

		now := time.Now()
		user := NewUser("jane@example.org", now.Add(-time.Hour))
		require.NoError(t, store.Write(ctx, &Session{User: user, ExpiresAt: now.Add(-time.Minute)}))

		state := svc.AuthState(ctx)
		assert.False(t, state.IsAuthenticated)

		session, err := store.Read(ctx)
		require.NoError(t, err)
		assert.Nil(t, session, "lazy expiry must clear the slot")

		// idempotent on repeat
		state = svc.AuthState(ctx)
		assert.False(t, state.IsAuthenticated)
	})

	t.Run("StorageFaultIsAnonymous", func(t *testing.T) {
		svc := newTestService(failingStore{})

		state := svc.AuthState(ctx)
		assert.False(t, state.IsAuthenticated)
	})

	t.Run("AuthenticatedEqualsUserPresent", func(t *testing.T) {
		svc := newTestService(NewInMemoryStore())

		state := svc.AuthState(ctx)
		assert.Equal(t, state.User != nil, state.IsAuthenticated)

		svc.Login(ctx, validLogin())
		state = svc.AuthState(ctx)
		assert.Equal(t, state.User != nil, state.IsAuthenticated)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("AlwaysReturnsToAnonymous", func(t *testing.T) {
		svc := newTestService(NewInMemoryStore())

		require.True(t, svc.Login(ctx, validLogin()).Success)
		require.True(t, svc.Logout(ctx).Success)

		state := svc.AuthState(ctx)
		assert.False(t, state.IsAuthenticated)
	})

	t.Run("IdempotentWhenAnonymous", func(t *testing.T) {
		svc := newTestService(NewInMemoryStore())

		require.True(t, svc.Logout(ctx).Success)
		require.True(t, svc.Logout(ctx).Success)
		assert.False(t, svc.AuthState(ctx).IsAuthenticated)
	})
}

func TestRefreshSession(t *testing.T) {
	ctx := context.Background()

	t.Run("AnonymousRefreshFails", func(t *testing.T) {
		store := NewInMemoryStore()
		svc := newTestService(store)

		result := svc.RefreshSession(ctx)
		require.False(t, result.Success)
		assert.Equal(t, ErrorTypeUnauthorized, result.Code)

		session, err := store.Read(ctx)
		require.NoError(t, err)
		assert.Nil(t, session, "refresh must not create a session")
	})

	t.Run("RefreshNeverEscalatesToRememberMe", func(t *testing.T) {
		store := NewInMemoryStore()
		svc := newTestService(store)

		base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return base }

		req := validLogin()
		req.RememberMe = true
		require.True(t, svc.Login(ctx, req).Success)

		later := base.Add(time.Hour)
		svc.now = func() time.Time { return later }

		result := svc.RefreshSession(ctx)
		require.True(t, result.Success)

		session, err := store.Read(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.True(t, session.ExpiresAt.Equal(later.Add(24*time.Hour)))
	})

	t.Run("RefreshKeepsSameUser", func(t *testing.T) {
		store := NewInMemoryStore()
		svc := newTestService(store)

		login := svc.Login(ctx, validLogin())
		require.True(t, login.Success)

		result := svc.RefreshSession(ctx)
		require.True(t, result.Success)

		session, err := store.Read(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, login.User.ID, session.User.ID)
	})
}

func TestExpiringSoon(t *testing.T) {
	ctx := context.Background()

	t.Run("ThresholdAtFiveMinutes", func(t *testing.T) {
		store := NewInMemoryStore()
		svc := newTestService(store)

		base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return base }

		user := NewUser("jane@example.org", base)

		require.NoError(t, store.Write(ctx, &Session{User: user, ExpiresAt: base.Add(6 * time.Minute)}))
		assert.False(t, svc.ExpiringSoon(ctx))

		require.NoError(t, store.Write(ctx, &Session{User: user, ExpiresAt: base.Add(4 * time.Minute)}))
		assert.True(t, svc.ExpiringSoon(ctx))
	})

	t.Run("FalseWhenAnonymous", func(t *testing.T) {
		svc := newTestService(NewInMemoryStore())
		assert.False(t, svc.ExpiringSoon(ctx))
	})
}

func TestErrorOverlay(t *testing.T) {
	ctx := context.Background()

	t.Run("FailureCarriesUntilCleared", func(t *testing.T) {
		svc := newTestService(NewInMemoryStore())

		req := validLogin()
		req.Password = "nope"
		svc.Login(ctx, req)

		state := svc.AuthState(ctx)
		assert.NotEmpty(t, state.Error)

		svc.ClearError()
		state = svc.AuthState(ctx)
		assert.Empty(t, state.Error)
	})

	t.Run("NextMutatingOperationResetsError", func(t *testing.T) {
		svc := newTestService(NewInMemoryStore())

		req := validLogin()
		req.Password = "nope"
		svc.Login(ctx, req)
		require.NotEmpty(t, svc.AuthState(ctx).Error)

		require.True(t, svc.Login(ctx, validLogin()).Success)
		assert.Empty(t, svc.AuthState(ctx).Error)
	})
}
