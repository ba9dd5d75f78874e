package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/astrogoddess/storefront/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionRouter(cfg SessionConfig, seen *string) *gin.Engine {
	router := gin.New()
	router.Use(Session(cfg))
	router.GET("/test", func(c *gin.Context) {
		*seen = GetSessionID(c)
		if logger.GetSessionID(c.Request.Context()) != *seen {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	require.Failf(t, "cookie not set", "cookie %q missing", name)
	return nil
}

func TestSession(t *testing.T) {
	t.Run("issues new session", func(t *testing.T) {
		var seen string
		router := newSessionRouter(DefaultSessionConfig(), &seen)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		_, err := uuid.Parse(seen)
		require.NoError(t, err)

		cookie := sessionCookie(t, w, DefaultSessionCookie)
		assert.Equal(t, seen, cookie.Value)
		assert.Equal(t, "/", cookie.Path)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), cookie.MaxAge)
	})

	t.Run("keeps existing session", func(t *testing.T) {
		var seen string
		router := newSessionRouter(DefaultSessionConfig(), &seen)
		existing := uuid.NewString()

		req := httptest.NewRequest("GET", "/test", nil)
		req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: existing})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, existing, seen)
		assert.Equal(t, existing, sessionCookie(t, w, DefaultSessionCookie).Value)
	})

	t.Run("replaces malformed session", func(t *testing.T) {
		var seen string
		router := newSessionRouter(DefaultSessionConfig(), &seen)

		req := httptest.NewRequest("GET", "/test", nil)
		req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: "../../etc/passwd"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.NotEqual(t, "../../etc/passwd", seen)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
	})

	t.Run("applies cookie settings", func(t *testing.T) {
		var seen string
		cfg := SessionConfig{
			CookieName: "cart",
			Domain:     "astrogoddess.example",
			MaxAge:     time.Hour,
			Secure:     true,
			SameSite:   http.SameSiteNoneMode,
		}
		router := newSessionRouter(cfg, &seen)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		cookie := sessionCookie(t, w, "cart")
		assert.Equal(t, "astrogoddess.example", cookie.Domain)
		assert.Equal(t, "/", cookie.Path)
		assert.Equal(t, 3600, cookie.MaxAge)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
	})
}

func TestParseSameSite(t *testing.T) {
	tests := []struct {
		input    string
		expected http.SameSite
	}{
		{"strict", http.SameSiteStrictMode},
		{"Strict", http.SameSiteStrictMode},
		{"none", http.SameSiteNoneMode},
		{"lax", http.SameSiteLaxMode},
		{"", http.SameSiteLaxMode},
		{"bogus", http.SameSiteLaxMode},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseSameSite(tt.input))
		})
	}
}
