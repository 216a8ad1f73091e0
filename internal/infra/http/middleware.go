package http

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"vendtrustd/internal/domain"
	"vendtrustd/internal/infra/hmacsig"

	"github.com/gin-gonic/gin"
)

const (
	ctxKeyAdminSubject = "admin_subject"
	ctxKeyMachineID    = "audit_machine_id"
	ctxKeySignatureOK  = "audit_signature_ok"
)

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.observe(route, c.Request.Method, c.Writer.Status(), elapsed)
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", elapsed.Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// requireAdmin validates the operator bearer token and stores the subject
// for actor attribution. Failures are generic on the wire.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			s.metrics.AuthFailures.WithLabelValues(codeUnauthorized).Inc()
			writeErrorCode(c, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			c.Abort()
			return
		}
		claims, err := s.validator.Validate(token)
		if err != nil {
			s.metrics.AuthFailures.WithLabelValues(codeUnauthorized).Inc()
			writeErrorCode(c, http.StatusUnauthorized, codeUnauthorized, "invalid bearer token")
			c.Abort()
			return
		}
		c.Set(ctxKeyAdminSubject, claims.Subject)
		c.Next()
	}
}

func extractBearerToken(value string) string {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return ""
	}
	return strings.TrimSpace(value[len("bearer "):])
}

func adminSubject(c *gin.Context) string {
	if subject, ok := c.Get(ctxKeyAdminSubject); ok {
		if str, ok := subject.(string); ok {
			return str
		}
	}
	return "unknown"
}

// auditRecorder appends one audit entry per device-facing request after the
// handler runs. The body is buffered once so the payload hash covers exactly
// the bytes the device sent.
func (s *Server) auditRecorder() gin.HandlerFunc {
	return func(c *gin.Context) {
		var payloadHash string
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err == nil {
				c.Request.Body = io.NopCloser(bytes.NewReader(body))
				if len(body) > 0 {
					payloadHash = hmacsig.PayloadHash(body)
				}
			}
		}

		c.Next()

		if s.audit == nil {
			return
		}
		s.audit.Append(domain.ApiAuditLogEntry{
			MachineID:    c.GetString(ctxKeyMachineID),
			Endpoint:     c.Request.URL.Path,
			Method:       c.Request.Method,
			IPAddress:    c.ClientIP(),
			ResponseCode: c.Writer.Status(),
			PayloadHash:  payloadHash,
			SignatureOK:  c.GetBool(ctxKeySignatureOK),
		})
	}
}
