// Package session keeps the signed-in profile in a cookie session and
// exposes it to handlers as an explicit per-request Context.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/vgnt/transport-portal/internal/config"
	"github.com/vgnt/transport-portal/internal/models"
)

// userKey is the session key holding the serialized profile
const userKey = "user"

// contextKey is the gin context key RequireSession stores the Context under
const contextKey = "session_context"

// ErrNoSession is returned when the request carries no usable session
var ErrNoSession = errors.New("no session")

// Source says how the request proved who it is
type Source string

const (
	SourceCookie Source = "cookie"
	SourceBearer Source = "bearer"
)

// Context is the signed-in identity for one request. It is built once by
// middleware and passed on to the role dashboard.
type Context struct {
	Profile   models.Profile
	SessionID string
	Source    Source
}

// Role returns the role the session was opened for
func (c Context) Role() models.Role {
	return c.Profile.Role
}

type stored struct {
	Profile   models.Profile `json:"profile"`
	SessionID string         `json:"sid"`
}

// NewStore creates the signed cookie store for the session middleware
func NewStore(cfg config.SessionConfig) sessions.Store {
	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		Secure:   cfg.Secure,
		HttpOnly: cfg.HTTPOnly,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

// Middleware attaches the cookie session to every request
func Middleware(cfg config.SessionConfig, store sessions.Store) gin.HandlerFunc {
	return sessions.Sessions(cfg.Name, store)
}

// Save writes the profile into the session cookie
func Save(c *gin.Context, profile models.Profile, sessionID string) error {
	if !profile.Role.Valid() {
		return fmt.Errorf("cannot save session for role %q", profile.Role)
	}

	data, err := json.Marshal(stored{Profile: profile, SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	s := sessions.Default(c)
	s.Set(userKey, string(data))
	if err := s.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load reads the profile from the session cookie
func Load(c *gin.Context) (Context, error) {
	raw, ok := sessions.Default(c).Get(userKey).(string)
	if !ok || raw == "" {
		return Context{}, ErrNoSession
	}

	var st stored
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return Context{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if !st.Profile.Role.Valid() {
		return Context{}, ErrNoSession
	}

	return Context{Profile: st.Profile, SessionID: st.SessionID, Source: SourceCookie}, nil
}

// Clear removes the profile and expires the cookie
func Clear(c *gin.Context) error {
	s := sessions.Default(c)
	s.Delete(userKey)
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := s.Save(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Set stores the request's Context for later handlers
func Set(c *gin.Context, sc Context) {
	c.Set(contextKey, sc)
}

// From returns the Context stored by Set
func From(c *gin.Context) (Context, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return Context{}, false
	}
	sc, ok := v.(Context)
	return sc, ok
}
