package http

import (
	"net/http"
	"strconv"
	"time"

	"vendtrustd/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	routeDevicesRegister  = "devices:register"
	routeDevicesHeartbeat = "devices:heartbeat"
)

// enforceRateLimit applies the per-machine fixed window. A limiter outage
// fails open unless configured otherwise; a throttled machine gets a
// rate_limited security event.
func (s *Server) enforceRateLimit(c *gin.Context, routeID, machineID string) bool {
	if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
		return true
	}
	key := "machine:" + machineID + ":" + routeID

	decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
	if err != nil {
		if s.rateLimitFailClosed {
			writeErrorCode(c, http.StatusTooManyRequests, codeRateLimited, "rate limiter unavailable")
			return false
		}
		s.log.Warn("rate limiter unavailable, failing open", "error", err)
		return true
	}
	writeRateLimitHeaders(c, decision)
	if !decision.Allowed {
		if s.events != nil {
			_, _ = s.events.Record(c.Request.Context(), domain.EventRateLimited, machineID, "device exceeded request rate limit")
			s.metrics.SecurityEvents.WithLabelValues(string(domain.EventRateLimited)).Inc()
		}
		writeErrorCode(c, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded")
		return false
	}
	return true
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
