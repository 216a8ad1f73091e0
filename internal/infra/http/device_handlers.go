package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"vendtrustd/internal/domain"

	"github.com/gin-gonic/gin"
)

const minNonceLength = 16

type registerRequest struct {
	MachineID       string `json:"machine_id"`
	MacAddress      string `json:"mac_address"`
	Fingerprint     string `json:"fingerprint,omitempty"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
}

type identityResponse struct {
	MachineID       string  `json:"machine_id"`
	MacAddress      string  `json:"mac_address"`
	CertFingerprint string  `json:"cert_fingerprint"`
	FirmwareVersion string  `json:"firmware_version,omitempty"`
	Status          string  `json:"status"`
	ProvisionedAt   string  `json:"provisioned_at"`
	RevokedAt       *string `json:"revoked_at,omitempty"`
}

type registerResponse struct {
	Identity identityResponse `json:"identity"`
	// DeviceSecret is present exactly once, on fresh or re-activated
	// provisioning. The device must persist it immediately.
	DeviceSecret string `json:"device_secret,omitempty"`
}

type sessionResponse struct {
	SessionID  string  `json:"session_id"`
	MachineID  string  `json:"machine_id"`
	IssuedAt   string  `json:"issued_at"`
	ExpiresAt  string  `json:"expires_at"`
	LastSeenAt *string `json:"last_seen_at,omitempty"`
	IPAddress  string  `json:"ip_address,omitempty"`
	IsRevoked  bool    `json:"is_revoked"`
}

type heartbeatResponse struct {
	Session    sessionResponse `json:"session"`
	ServerTime string          `json:"server_time"`
}

// deviceEnvelope is the signed request format. The signature covers the
// canonical JSON of {data, meta:{timestamp, nonce}}.
type deviceEnvelope struct {
	Data      json.RawMessage `json:"data"`
	Meta      envelopeMeta    `json:"meta"`
	Signature string          `json:"signature"`
}

type envelopeMeta struct {
	MachineID  string `json:"machine_id"`
	MacAddress string `json:"mac_address"`
	Timestamp  int64  `json:"timestamp"`
	Nonce      string `json:"nonce"`
	SessionID  string `json:"session_id,omitempty"`
}

// handleRegister is the unsigned first contact: the device has no secret yet.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, codeMissingBody, "invalid request body")
		return
	}
	if req.MachineID == "" || req.MacAddress == "" {
		writeErrorCode(c, http.StatusBadRequest, codeMissingFields, "machine_id and mac_address are required")
		return
	}
	c.Set(ctxKeyMachineID, req.MachineID)

	if !s.enforceRateLimit(c, routeDevicesRegister, req.MachineID) {
		return
	}

	result, err := s.registry.Provision(c.Request.Context(), req.MachineID, req.MacAddress, req.Fingerprint, req.FirmwareVersion)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if result.Secret != "" {
		status = http.StatusCreated
	}
	writeData(c, status, registerResponse{
		Identity:     identityView(result.Identity),
		DeviceSecret: result.Secret,
	})
}

// handleHeartbeat runs the full verification ladder, cheapest check first:
// timestamp, nonce, HMAC, then session issue or refresh.
func (s *Server) handleHeartbeat(c *gin.Context) {
	var env deviceEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		writeErrorCode(c, http.StatusBadRequest, codeMissingBody, "invalid request body")
		return
	}
	if len(env.Data) == 0 || env.Signature == "" {
		writeErrorCode(c, http.StatusBadRequest, codeMissingFields, "data and signature are required")
		return
	}
	meta := env.Meta
	if meta.MachineID == "" || meta.MacAddress == "" || meta.Timestamp == 0 || meta.Nonce == "" {
		writeErrorCode(c, http.StatusBadRequest, codeMissingFields, "meta is incomplete")
		return
	}
	c.Set(ctxKeyMachineID, meta.MachineID)

	if !s.enforceRateLimit(c, routeDevicesHeartbeat, meta.MachineID) {
		return
	}

	now := s.clock()
	sent := time.Unix(meta.Timestamp, 0)
	drift := now.Sub(sent)
	if drift < 0 {
		drift = -drift
	}
	if drift > s.cfg.TimestampSkew {
		s.recordDeviceEvent(c, domain.EventStaleTimestamp, meta.MachineID, "request timestamp outside tolerance window")
		writeError(c, domain.ErrStaleTimestamp)
		return
	}

	if len(meta.Nonce) < minNonceLength {
		writeErrorCode(c, http.StatusForbidden, codeNonceError, "request rejected")
		return
	}
	fresh, err := s.replay.Remember(c.Request.Context(), meta.MachineID, meta.Nonce, s.cfg.NonceTTL)
	if err != nil {
		writeErrorCode(c, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	if !fresh {
		s.recordDeviceEvent(c, domain.EventReplayDetected, meta.MachineID, "nonce reused within validity window")
		writeError(c, domain.ErrReplayDetected)
		return
	}

	base, err := signingBase(env.Data, meta.Timestamp, meta.Nonce)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, codeMissingBody, "invalid request body")
		return
	}
	identity, err := s.registry.Verify(c.Request.Context(), meta.MachineID, meta.MacAddress, env.Signature, base)
	if err != nil {
		s.countVerifyFailure(err)
		writeError(c, err)
		return
	}
	c.Set(ctxKeySignatureOK, true)

	session, err := s.resolveSession(c, identity.MachineID, meta.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	writeData(c, http.StatusOK, heartbeatResponse{
		Session:    sessionView(*session),
		ServerTime: now.Format(time.RFC3339),
	})
}

// resolveSession refreshes the presented session or issues a new one when
// the device has none usable. A session belonging to another machine is
// treated as invalid, not refreshed.
func (s *Server) resolveSession(c *gin.Context, machineID, sessionID string) (*domain.DeviceSession, error) {
	if sessionID != "" {
		session, err := s.sessions.Heartbeat(c.Request.Context(), sessionID)
		if err == nil {
			if session.MachineID != machineID {
				return nil, domain.ErrSessionRevoked
			}
			return session, nil
		}
		if !errors.Is(err, domain.ErrNotFound) &&
			!errors.Is(err, domain.ErrSessionExpired) &&
			!errors.Is(err, domain.ErrSessionRevoked) {
			return nil, err
		}
	}
	return s.sessions.Issue(c.Request.Context(), machineID, c.ClientIP(), s.cfg.SessionTTL)
}

func signingBase(data json.RawMessage, timestamp int64, nonce string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"data": data,
		"meta": map[string]any{
			"timestamp": timestamp,
			"nonce":     nonce,
		},
	})
}

func (s *Server) recordDeviceEvent(c *gin.Context, eventType domain.SecurityEventType, machineID, message string) {
	if s.events != nil {
		_, _ = s.events.Record(c.Request.Context(), eventType, machineID, message)
	}
	s.metrics.SecurityEvents.WithLabelValues(string(eventType)).Inc()
}

// countVerifyFailure mirrors the events the registry already recorded into
// the metrics counters.
func (s *Server) countVerifyFailure(err error) {
	var eventType domain.SecurityEventType
	switch {
	case errors.Is(err, domain.ErrUnknownMachine):
		eventType = domain.EventUnknownMachine
	case errors.Is(err, domain.ErrIdentityRevoked):
		eventType = domain.EventRevokedMachineAttempt
	case errors.Is(err, domain.ErrMacMismatch):
		eventType = domain.EventMacMismatch
	case errors.Is(err, domain.ErrBadSignature):
		eventType = domain.EventBadSignature
	default:
		return
	}
	s.metrics.SecurityEvents.WithLabelValues(string(eventType)).Inc()
}

func identityView(identity domain.MachineIdentity) identityResponse {
	view := identityResponse{
		MachineID:       identity.MachineID,
		MacAddress:      identity.MacAddress,
		CertFingerprint: identity.CertFingerprint,
		FirmwareVersion: identity.FirmwareVersion,
		Status:          string(identity.Status),
		ProvisionedAt:   identity.ProvisionedAt.Format(time.RFC3339),
	}
	if identity.RevokedAt != nil {
		formatted := identity.RevokedAt.Format(time.RFC3339)
		view.RevokedAt = &formatted
	}
	return view
}

func sessionView(session domain.DeviceSession) sessionResponse {
	view := sessionResponse{
		SessionID: session.SessionID,
		MachineID: session.MachineID,
		IssuedAt:  session.IssuedAt.Format(time.RFC3339),
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
		IPAddress: session.IPAddress,
		IsRevoked: session.IsRevoked,
	}
	if session.LastSeenAt != nil {
		formatted := session.LastSeenAt.Format(time.RFC3339)
		view.LastSeenAt = &formatted
	}
	return view
}
