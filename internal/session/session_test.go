package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgnt/transport-portal/internal/config"
	"github.com/vgnt/transport-portal/internal/models"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.SessionConfig{Secret: "session-secret", Name: "vgnt_session", MaxAge: 3600, HTTPOnly: true}

	r := gin.New()
	r.Use(Middleware(cfg, NewStore(cfg)))

	r.POST("/login", func(c *gin.Context) {
		profile := models.Profile{Name: "RAVI KUMAR", Roll: "21891A0501", Seat: "R3-L1", Role: models.RoleStudent}
		if err := Save(c, profile, "sid-1"); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/me", func(c *gin.Context) {
		sc, err := Load(c)
		if err != nil {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": sc.Profile.Name, "role": sc.Role(), "sid": sc.SessionID, "source": sc.Source})
	})
	r.POST("/logout", func(c *gin.Context) {
		if err := Clear(c); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r *gin.Engine, method, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSession_Lifecycle(t *testing.T) {
	r := testRouter()

	w := do(r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/login", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "vgnt_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	w = do(r, http.MethodGet, "/me", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"RAVI KUMAR","role":"student","sid":"sid-1","source":"cookie"}`, w.Body.String())

	w = do(r, http.MethodPost, "/logout", cookies)
	require.Equal(t, http.StatusNoContent, w.Code)
	cleared := w.Result().Cookies()
	require.NotEmpty(t, cleared)

	w = do(r, http.MethodGet, "/me", cleared)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSession_TamperedCookieRejected(t *testing.T) {
	r := testRouter()

	w := do(r, http.MethodGet, "/me", []*http.Cookie{{Name: "vgnt_session", Value: "forged"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSetAndFrom(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := From(c)
	assert.False(t, ok)

	Set(c, Context{Profile: models.Profile{Name: "CH Srinu", Role: models.RoleDriver}, Source: SourceBearer})
	sc, ok := From(c)
	require.True(t, ok)
	assert.Equal(t, models.RoleDriver, sc.Role())
}
