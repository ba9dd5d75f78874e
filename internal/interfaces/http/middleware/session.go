package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/astrogoddess/storefront/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DefaultSessionCookie is the cookie that identifies a visitor's cart
const DefaultSessionCookie = "ag_cart_session"

// SessionConfig holds the session cookie settings
type SessionConfig struct {
	CookieName string
	Domain     string
	Path       string
	MaxAge     time.Duration
	Secure     bool
	SameSite   http.SameSite
}

// DefaultSessionConfig returns a lax, HTTP-only cookie scoped to the whole site
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		CookieName: DefaultSessionCookie,
		Path:       "/",
		MaxAge:     30 * 24 * time.Hour,
		SameSite:   http.SameSiteLaxMode,
	}
}

// ParseSameSite maps a config value (strict, lax, none) to http.SameSite.
// Anything else yields lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Session resolves the visitor's cart session from the session cookie. A
// missing or malformed cookie starts a new session and issues a fresh uuid.
// The cookie is refreshed on every request so active carts do not expire.
func Session(cfg SessionConfig) gin.HandlerFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultSessionCookie
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}

	return func(c *gin.Context) {
		sessionID := ""
		if raw, err := c.Cookie(cfg.CookieName); err == nil {
			if id, err := uuid.Parse(raw); err == nil {
				sessionID = id.String()
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		http.SetCookie(c.Writer, &http.Cookie{
			Name:     cfg.CookieName,
			Value:    sessionID,
			Path:     cfg.Path,
			Domain:   cfg.Domain,
			MaxAge:   int(cfg.MaxAge.Seconds()),
			Secure:   cfg.Secure,
			HttpOnly: true,
			SameSite: cfg.SameSite,
		})

		c.Set(logger.GinSessionIDKey, sessionID)
		c.Request = c.Request.WithContext(logger.WithSessionID(c.Request.Context(), sessionID))
		c.Next()
	}
}

// GetSessionID returns the session id resolved by Session
func GetSessionID(c *gin.Context) string {
	return c.GetString(logger.GinSessionIDKey)
}
