package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestParseUserAgent(t *testing.T) {
	android := "Mozilla/5.0 (Linux; Android 12; Pixel 6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Mobile Safari/537.36"
	info := ParseUserAgent(android)
	assert.Equal(t, "mobile", info.DeviceType)
	assert.Equal(t, "android", info.Platform)
	assert.Contains(t, info.Browser, "Chrome")
	assert.False(t, info.IsBot)

	empty := ParseUserAgent("")
	assert.Equal(t, "unknown", empty.DeviceType)
	assert.Equal(t, "Unknown", empty.OS)

	bot := ParseUserAgent("Googlebot/2.1 (+http://www.google.com/bot.html)")
	assert.True(t, bot.IsBot)
}

func TestGetRealIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"x-real-ip", map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7"},
		{"forwarded skips private", map[string]string{"X-Forwarded-For": "10.0.0.4, 198.51.100.2"}, "198.51.100.2"},
		{"remote addr", map[string]string{}, "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetRealIP(c))
		})
	}
}

func TestGetUserAgent(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "Unknown", GetUserAgent(c))

	c.Request.Header.Set("User-Agent", "curl/8.0")
	assert.Equal(t, "curl/8.0", GetUserAgent(c))
}

func TestGeneratePortalSecrets(t *testing.T) {
	s, err := GeneratePortalSecrets()
	require.NoError(t, err)
	assert.Len(t, s.JWTSecret, 64)
	assert.NotEqual(t, s.JWTSecret, s.JWTRefreshSecret)
	assert.NotEqual(t, s.JWTSecret, s.SessionSecret)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("bus-4074", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("bus-4074")))
}
