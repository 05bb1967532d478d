package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vgnt/transport-portal/internal/models"
	"github.com/vgnt/transport-portal/internal/session"
	"github.com/vgnt/transport-portal/pkg/jwt"
)

// RequireSession builds the request's session.Context from a Bearer access
// token or, when no Authorization header is sent, from the session cookie.
// A request with neither is rejected.
func RequireSession(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			sc, err := session.Load(c)
			if err != nil {
				logger.WithFields(logrus.Fields{"path": c.Request.URL.Path, "ip": c.ClientIP()}).
					Debug("AUTH FAILED: no session")
				abort(c, http.StatusUnauthorized, "unauthorized", "Please sign in to continue", "MISSING_SESSION")
				return
			}
			session.Set(c, sc)
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			logger.WithFields(logrus.Fields{"path": c.Request.URL.Path, "ip": c.ClientIP()}).
				Warn("AUTH FAILED: invalid auth format")
			abort(c, http.StatusUnauthorized, "unauthorized",
				"Invalid authorization header format. Expected: Bearer <token>", "INVALID_AUTH_FORMAT")
			return
		}
		tokenString := strings.TrimSpace(parts[1])

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			entry := logger.WithFields(logrus.Fields{"path": c.Request.URL.Path, "ip": c.ClientIP()}).WithError(err)
			if jwtService.IsTokenExpired(tokenString) {
				entry.Info("AUTH FAILED: token expired")
				abort(c, http.StatusUnauthorized, "token_expired",
					"Access token has expired. Please refresh your token.", "TOKEN_EXPIRED")
			} else {
				entry.Warn("AUTH FAILED: invalid token")
				abort(c, http.StatusUnauthorized, "invalid_token", "Invalid access token", "INVALID_TOKEN")
			}
			return
		}

		role, err := models.ParseRole(claims.Role)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid_token", "Invalid access token", "INVALID_TOKEN")
			return
		}

		session.Set(c, session.Context{
			Profile:   models.Profile{Name: claims.Name, Roll: claims.Roll, Role: role},
			SessionID: claims.SessionID.String(),
			Source:    session.SourceBearer,
		})
		c.Next()
	}
}

// RequireRole rejects sessions opened for any role not listed
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, ok := session.From(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized",
				"Session not found. Auth middleware may not be applied.", "MISSING_SESSION")
			return
		}

		for _, r := range roles {
			if sc.Role() == r {
				c.Next()
				return
			}
		}

		abort(c, http.StatusForbidden, "forbidden",
			"You don't have permission to access this resource", "INSUFFICIENT_PERMISSIONS")
	}
}

// MustGetSession retrieves the session context or panics (use only after RequireSession)
func MustGetSession(c *gin.Context) session.Context {
	sc, ok := session.From(c)
	if !ok {
		panic("session context not found - ensure RequireSession is applied")
	}
	return sc
}

func abort(c *gin.Context, status int, errCode, message, code string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   errCode,
		"message": message,
		"code":    code,
	})
}
