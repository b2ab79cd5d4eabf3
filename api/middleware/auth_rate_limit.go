package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sinavhub/sinavhub-backend/api/responses"
	"github.com/sinavhub/sinavhub-backend/pkg/config"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
)

// AuthRateLimitPolicy caps attempts per client IP and per submitted email
// inside a fixed window. Counters live in Redis so limits hold across
// instances.
type AuthRateLimitPolicy struct {
	Scope      string
	Window     time.Duration
	IPLimit    int64
	EmailLimit int64
}

func LoginRateLimitPolicy(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		Scope:      "auth:login",
		Window:     cfg.LoginWindow,
		IPLimit:    int64(cfg.LoginIPLimit),
		EmailLimit: int64(cfg.LoginEmailLimit),
	}
}

func RegisterRateLimitPolicy(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		Scope:      "auth:register",
		Window:     cfg.RegisterWindow,
		IPLimit:    int64(cfg.RegisterIPLimit),
		EmailLimit: int64(cfg.RegisterEmailLimit),
	}
}

// FixedWindowLimiter is the counter surface the auth rate limiter depends on.
type FixedWindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func AuthRateLimit(limiter FixedWindowLimiter, policy AuthRateLimitPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || policy.Window <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			if policy.IPLimit > 0 {
				allowed, _, err := limiter.FixedWindowAllow(r.Context(), policy.Scope+":ip:"+ip, policy.IPLimit, policy.Window)
				if err != nil {
					warnRateLimit(r, logg, policy.Scope)
				} else if !allowed {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}

			if policy.EmailLimit > 0 {
				if email := extractEmail(r); email != "" {
					scope := policy.Scope + ":email:" + hashEmail(email)
					allowed, _, err := limiter.FixedWindowAllow(r.Context(), scope, policy.EmailLimit, policy.Window)
					if err != nil {
						warnRateLimit(r, logg, policy.Scope)
					} else if !allowed {
						responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Limiter errors fail open.
func warnRateLimit(r *http.Request, logg *logger.Logger, scope string) {
	if logg == nil {
		return
	}
	logg.Warn(logg.WithField(r.Context(), "rate_limit_scope", scope), "rate limit check failed, allowing request")
}

// extractEmail peeks at the JSON body for an email field and restores the
// body for downstream decoding.
func extractEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func hashEmail(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:8])
}

// ClientIP prefers the left-most X-Forwarded-For entry set by the edge proxy.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
