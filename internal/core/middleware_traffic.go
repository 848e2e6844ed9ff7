package core

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"airwatch/internal/types"
)

// RateLimit enforces the configured per-client request rate. Clients are
// keyed by IP. With no RateLimitStore, or a configured rate of zero, the
// middleware passes through.
//
// Every checked response carries X-RateLimit-Limit, X-RateLimit-Remaining
// and X-RateLimit-Reset. Rejected requests also get Retry-After.
func (s *Server) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, window, ok := s.rateLimitParams()
		if s.RateLimitStore == nil || !ok {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := extractClientIP(r)

		result, err := s.RateLimitStore.IncrementAndCheck(r.Context(), clientIP, limit, window)
		if err != nil {
			// Fail open: a limiter fault must not take the API down.
			s.Logger.Error("rate limit store error",
				slog.String("client_ip", clientIP),
				slog.String("error", err.Error()),
			)
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, limit, result)

		if !result.Allowed {
			s.Logger.Warn("rate limit exceeded",
				slog.String("client_ip", clientIP),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			retryAfter := int(time.Until(result.ResetAt).Seconds() + 0.999)
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			Error(w, r, types.NewAppError(types.ErrCodeRateLimit, "Rate limit exceeded. Please retry after the reset time.", nil))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitParams converts the configured RPS and burst into the limit and
// window understood by RateLimitStore.
func (s *Server) rateLimitParams() (int, time.Duration, bool) {
	if s.Config == nil || s.Config.Security.RateLimitRPS <= 0 || s.Config.Security.RateLimitBurst <= 0 {
		return 0, 0, false
	}
	burst := s.Config.Security.RateLimitBurst
	window := time.Duration(float64(burst) / s.Config.Security.RateLimitRPS * float64(time.Second))
	return burst, window, true
}

// setRateLimitHeaders writes the standard X-RateLimit-* headers to the response.
func setRateLimitHeaders(w http.ResponseWriter, limit int, result RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// extractClientIP returns the first X-Forwarded-For entry, or RemoteAddr
// without its port.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
