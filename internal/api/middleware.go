package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/idgen"
	"lovincraft-store/internal/service"
)

// Request headers carrying the caller's identity. Authentication is out of
// scope; the headers are trusted as given.
const (
	HeaderUserID    = "X-User-ID"
	HeaderSessionID = "X-Session-ID"
)

const sessionKey = "session"

// SessionCookie carries a minted guest session id for browser clients that
// do not send X-Session-ID.
const SessionCookie = "lovincraft_session"

const sessionCookieMaxAge = 30 * 24 * 60 * 60

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	stop     chan struct{}
	stopOnce sync.Once
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per second with
// the given burst. A non-positive limit disables limiting.
func NewRateLimiter(limit float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Limit(limit),
		burst:    burst,
		stop:     make(chan struct{}),
	}
	if limit <= 0 {
		rl.limit = rate.Inf
	}
	go rl.cleanup(10 * time.Minute)
	return rl
}

// Allow reports whether a request from key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = time.Now()
	rl.mu.Unlock()

	return cl.limiter.Allow()
}

// Middleware rejects requests over the client's rate with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try later."})
			return
		}
		c.Next()
	}
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, cl := range rl.limiters {
				if now.Sub(cl.lastSeen) > interval {
					delete(rl.limiters, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// SessionMiddleware resolves the caller's session from the identity headers.
// An anonymous caller without a session gets a fresh one, echoed in the
// X-Session-ID response header and a cookie, so guests never share a cart
// or a referral marker.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		sessionID := c.GetHeader(HeaderSessionID)
		if sessionID == "" {
			sessionID, _ = c.Cookie(SessionCookie)
		}
		if sessionID == "" && userID == "" {
			sessionID = idgen.New("anon")
			c.SetCookie(SessionCookie, sessionID, sessionCookieMaxAge, "/", "", false, true)
		}

		session := model.NewSession(userID, sessionID)
		c.Header(HeaderSessionID, session.SessionID)
		c.Set(sessionKey, session)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) model.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(model.Session); ok {
			return s
		}
	}
	return model.NewSession("", "")
}

// ReferralMiddleware applies a ?ref= code found on any request to the
// caller's session. Failures never block the request.
func ReferralMiddleware(referrals *service.ReferralService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if code := c.Query("ref"); code != "" && referrals != nil {
			session := sessionFrom(c)
			if _, err := referrals.ApplyReferralCode(c.Request.Context(), session, code); err != nil {
				log.Warn().Err(err).Str("session_id", session.SessionID).Msg("Failed to apply referral from link")
			}
		}
		c.Next()
	}
}

// RequireUser rejects guest sessions with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessionFrom(c).IsGuest() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please sign in to continue."})
			return
		}
		c.Next()
	}
}

// LoggingMiddleware logs every request once it completes.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("client_ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Msg("Handled request")
	}
}

// RecoveryMiddleware turns a handler panic into a 500 response.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Msg("Recovered from panic in handler")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, please try again."})
			}
		}()
		c.Next()
	}
}
