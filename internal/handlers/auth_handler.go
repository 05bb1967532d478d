package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vgnt/transport-portal/internal/middleware"
	"github.com/vgnt/transport-portal/internal/models"
	"github.com/vgnt/transport-portal/internal/services"
	"github.com/vgnt/transport-portal/internal/session"
	"github.com/vgnt/transport-portal/internal/utils"
)

// invalidLoginMessage is shown for every rejected login, whichever field was wrong
const invalidLoginMessage = "Invalid Name or Roll Number. Please try again."

// AuthHandler handles sign-in and sign-out for all three roles
type AuthHandler struct {
	authService  *services.AuthService
	auditService *services.AuditService
	logger       *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, auditService *services.AuditService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		auditService: auditService,
		logger:       logger,
	}
}

// LoginRequest is the sign-in form. Students send name and roll, staff send
// an optional password.
type LoginRequest struct {
	Role     string `json:"role" binding:"required"`
	Name     string `json:"name"`
	Roll     string `json:"roll"`
	Password string `json:"password"`
}

// LoginResponse is returned after a successful sign-in
type LoginResponse struct {
	Profile      models.Profile `json:"profile"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in_seconds"`
	Redirect     string         `json:"redirect"`
}

// RefreshTokenRequest carries the refresh token to exchange
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_role",
			Message: "Role must be student, driver or management",
		})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), services.LoginRequest{
		Role:      role,
		Name:      req.Name,
		Roll:      req.Roll,
		Password:  req.Password,
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	})
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_credentials",
			Message: invalidLoginMessage,
		})
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("role", role).Error("Login failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "login_failed",
			Message: "Could not sign in. Please try again.",
		})
		return
	}

	if err := session.Save(c, result.Profile, result.SessionID.String()); err != nil {
		h.logger.WithError(err).Error("Failed to write session cookie")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "session_failed",
			Message: "Could not start session",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Profile:      result.Profile,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    result.ExpiresIn,
		Redirect:     "/" + string(role),
	})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sc := middleware.MustGetSession(c)

	if err := session.Clear(c); err != nil {
		h.logger.WithError(err).Warn("Failed to clear session cookie")
	}

	h.auditService.LogLogout(sc.Role(), subject(sc.Profile), utils.GetRealIP(c), utils.GetUserAgent(c))

	c.JSON(http.StatusOK, gin.H{
		"message":  "Successfully logged out",
		"redirect": "/",
	})
}

// RefreshToken handles POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	result, err := h.authService.Refresh(req.RefreshToken, utils.GetRealIP(c), utils.GetUserAgent(c))
	if errors.Is(err, services.ErrInvalidToken) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired refresh token",
		})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Token refresh failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "refresh_failed",
			Message: "Failed to refresh token",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":       result.AccessToken,
		"token_type":         "Bearer",
		"expires_in_seconds": result.ExpiresIn,
	})
}

// Session handles GET /api/v1/auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	sc := middleware.MustGetSession(c)
	c.JSON(http.StatusOK, gin.H{
		"profile": sc.Profile,
		"source":  sc.Source,
	})
}

func subject(p models.Profile) string {
	if p.Roll != "" {
		return p.Roll
	}
	return string(p.Role)
}
