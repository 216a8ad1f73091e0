// Package http exposes the device and admin surfaces over gin. Device
// endpoints authenticate with the signed request envelope; admin endpoints
// require an operator bearer token.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"vendtrustd/internal/config"
	"vendtrustd/internal/domain"
	"vendtrustd/internal/infra/auth"
	"vendtrustd/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg config.Config
	r   *gin.Engine
	log *slog.Logger

	registry *usecase.Registry
	rotator  *usecase.Rotator
	sessions *usecase.SessionManager
	events   *usecase.EventRecorder
	audit    *usecase.AuditTrail

	replay    domain.ReplayCache
	validator *auth.Validator
	metrics   *Metrics

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool

	// dbPing is nil when running on the in-memory store.
	dbPing func(ctx context.Context) error

	clock usecase.Clock
}

type ServerDeps struct {
	Registry    *usecase.Registry
	Rotator     *usecase.Rotator
	Sessions    *usecase.SessionManager
	Events      *usecase.EventRecorder
	Audit       *usecase.AuditTrail
	Replay      domain.ReplayCache
	RateLimiter domain.RateLimiter
	Validator   *auth.Validator
	Metrics     *Metrics
	Logger      *slog.Logger
	DBPing      func(ctx context.Context) error
	Clock       usecase.Clock
}

func NewServer(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:                 cfg,
		r:                   r,
		log:                 deps.Logger,
		registry:            deps.Registry,
		rotator:             deps.Rotator,
		sessions:            deps.Sessions,
		events:              deps.Events,
		audit:               deps.Audit,
		replay:              deps.Replay,
		validator:           deps.Validator,
		metrics:             deps.Metrics,
		rateLimiter:         deps.RateLimiter,
		rateLimitRequests:   cfg.RateLimitRequests,
		rateLimitWindow:     cfg.RateLimitWindow,
		rateLimitFailClosed: cfg.RateLimitFailClosed,
		dbPing:              deps.DBPing,
		clock:               deps.Clock,
	}
	if s.clock == nil {
		s.clock = func() time.Time { return time.Now().UTC() }
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.audit != nil {
		s.metrics.RegisterAuditDropped(s.audit.Dropped)
	}
	r.Use(s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealthz)
	s.r.GET("/metrics", s.metrics.Handler())

	v1 := s.r.Group("/api/v1")

	devices := v1.Group("/devices")
	devices.Use(s.auditRecorder())
	{
		devices.POST("/register", s.handleRegister)
		devices.POST("/heartbeat", s.handleHeartbeat)
	}

	admin := v1.Group("")
	admin.Use(s.requireAdmin())
	{
		admin.GET("/devices/identity", s.handleListIdentities)
		admin.GET("/devices/identity/:machine_id", s.handleGetIdentity)
		admin.PUT("/devices/identity/:machine_id/revoke", s.handleRevokeIdentity)
		admin.POST("/devices/identity/:machine_id/rotate", s.handleRotateKey)

		admin.GET("/devices/sessions", s.handleListSessions)
		admin.PUT("/devices/sessions/:session_id/revoke", s.handleRevokeSession)

		admin.GET("/devices/key-rotations", s.handleListRotations)

		admin.GET("/security/events", s.handleListEvents)
		admin.GET("/security/events/unresolved", s.handleListUnresolvedEvents)
		admin.PUT("/security/events/:event_id/resolve", s.handleResolveEvent)

		admin.GET("/security/audit-logs", s.handleListAuditLogs)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, codeNotFound, "route not found")
	})
}

func (s *Server) handleHealthz(c *gin.Context) {
	mode := "memory"
	status := "ok"
	if s.dbPing != nil {
		mode = "db"
		if err := s.dbPing(c.Request.Context()); err != nil {
			status = "degraded"
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "mode": mode})
}

// Handler exposes the router for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.ListenAddr)
}
