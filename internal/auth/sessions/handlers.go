package sessions

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthHandlers provides HTTP handlers exposing the session state machine to
// a presentation layer
type AuthHandlers struct {
	manager SessionManager
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(manager SessionManager) *AuthHandlers {
	return &AuthHandlers{
		manager: manager,
	}
}

// RegisterRoutes registers all auth-related routes
func (h *AuthHandlers) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth/v1")
	{
		auth.GET("/state", h.GetState)
		auth.POST("/login", h.Login)
		auth.POST("/signup", h.Signup)
		auth.POST("/logout", h.Logout)
		auth.POST("/refresh", h.Refresh)
		auth.DELETE("/error", h.ClearError)
	}
}

// GetState returns the derived authentication state plus the
// expiry-proximity flag
func (h *AuthHandlers) GetState(c *gin.Context) {
	ctx := c.Request.Context()

	state := h.manager.AuthState(ctx)
	c.JSON(http.StatusOK, gin.H{
		"state":         state,
		"expiring_soon": h.manager.ExpiringSoon(ctx),
	})
}

// Login authenticates the supplied credentials and establishes a session
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result := h.manager.Login(c.Request.Context(), &req)
	c.JSON(statusForResult(result), result)
}

// Signup registers a new account and establishes a session
func (h *AuthHandlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result := h.manager.Signup(c.Request.Context(), &req)
	c.JSON(statusForResult(result), result)
}

// Logout clears the current session
func (h *AuthHandlers) Logout(c *gin.Context) {
	result := h.manager.Logout(c.Request.Context())
	c.JSON(statusForResult(result), result)
}

// Refresh extends the current session by the default duration
func (h *AuthHandlers) Refresh(c *gin.Context) {
	result := h.manager.RefreshSession(c.Request.Context())
	c.JSON(statusForResult(result), result)
}

// ClearError discards the carried error message
func (h *AuthHandlers) ClearError(c *gin.Context) {
	h.manager.ClearError()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func statusForResult(result AuthResult) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.Code {
	case ErrorTypeValidationFailed:
		return http.StatusBadRequest
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
