package http

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

const (
	tokenKey   = "bearer_token"
	subjectKey = "subject"

	limiterIdleTTL   = 10 * time.Minute
	limiterSweepTick = 5 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Middleware struct {
	jwtSecret    []byte
	rateLimiters map[string]*limiterEntry
	lastSweep    time.Time
	now          func() time.Time
	mu           sync.Mutex
}

// NewMiddleware with an empty secret accepts any bearer token without verifying it.
func NewMiddleware(secret string) *Middleware {
	return &Middleware{
		jwtSecret:    []byte(secret),
		rateLimiters: make(map[string]*limiterEntry),
		lastSweep:    time.Now(),
		now:          time.Now,
	}
}

// AuthRequired extracts the bearer token and, when a secret is configured,
// checks that it is a valid HMAC-signed JWT. The raw token is stored for
// forwarding upstream.
func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			return
		}

		if len(m.jwtSecret) > 0 {
			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return m.jwtSecret, nil
			})
			if err != nil || !token.Valid {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
			if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
				c.Set(subjectKey, sub)
			}
		}

		c.Set(tokenKey, tokenString)
		c.Next()
	}
}

// RateLimitPerToken limits requests per verified subject, or per bearer token
// when no subject was verified (must follow AuthRequired). Limiters idle for
// longer than limiterIdleTTL are dropped.
func (m *Middleware) RateLimitPerToken(r rate.Limit, b int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "token:" + c.GetString(tokenKey)
		if sub := c.GetString(subjectKey); sub != "" {
			key = "sub:" + sub
		} else if key == "token:" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token not found for rate limiting"})
			return
		}

		m.mu.Lock()
		now := m.now()
		if now.Sub(m.lastSweep) > limiterSweepTick {
			m.sweep(now)
		}
		entry, exists := m.rateLimiters[key]
		if !exists {
			entry = &limiterEntry{limiter: rate.NewLimiter(r, b)}
			m.rateLimiters[key] = entry
		}
		entry.lastSeen = now
		limiter := entry.limiter
		m.mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		c.Next()
	}
}

// sweep removes idle limiters. Caller holds m.mu.
func (m *Middleware) sweep(now time.Time) {
	for key, entry := range m.rateLimiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(m.rateLimiters, key)
		}
	}
	m.lastSweep = now
}

// CORSMiddleware allows Cross-Origin requests
func (m *Middleware) CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SecurityHeaders adds security headers to every response
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// RequestSizeLimiter limits request body size
func RequestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
