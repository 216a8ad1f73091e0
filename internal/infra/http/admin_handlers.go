package http

import (
	"net/http"
	"strconv"
	"time"

	"vendtrustd/internal/domain"

	"github.com/gin-gonic/gin"
)

type rotateRequest struct {
	Reason string `json:"reason,omitempty"`
}

type rotationResponse struct {
	RotationID        string  `json:"rotation_id"`
	MachineID         string  `json:"machine_id"`
	OldKeyFingerprint *string `json:"old_key_fingerprint,omitempty"`
	NewKeyFingerprint string  `json:"new_key_fingerprint"`
	RotatedBy         *string `json:"rotated_by,omitempty"`
	RotatedAt         string  `json:"rotated_at"`
	Reason            string  `json:"reason"`
}

type eventResponse struct {
	EventID    string  `json:"event_id"`
	MachineID  string  `json:"machine_id,omitempty"`
	EventType  string  `json:"event_type"`
	Severity   string  `json:"severity"`
	Message    string  `json:"message"`
	CreatedAt  string  `json:"created_at"`
	IsResolved bool    `json:"is_resolved"`
	ResolvedAt *string `json:"resolved_at,omitempty"`
	ResolvedBy *string `json:"resolved_by,omitempty"`
}

type auditLogResponse struct {
	RequestID    string `json:"request_id"`
	MachineID    string `json:"machine_id,omitempty"`
	Endpoint     string `json:"endpoint"`
	Method       string `json:"method"`
	IPAddress    string `json:"ip_address,omitempty"`
	ResponseCode int    `json:"response_code"`
	PayloadHash  string `json:"payload_hash,omitempty"`
	SignatureOK  bool   `json:"signature_ok"`
	CreatedAt    string `json:"created_at"`
}

func (s *Server) handleListIdentities(c *gin.Context) {
	identities, err := s.registry.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]identityResponse, 0, len(identities))
	for _, identity := range identities {
		views = append(views, identityView(identity))
	}
	writeData(c, http.StatusOK, views)
}

func (s *Server) handleGetIdentity(c *gin.Context) {
	identity, err := s.registry.Get(c.Request.Context(), c.Param("machine_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, identityView(*identity))
}

func (s *Server) handleRevokeIdentity(c *gin.Context) {
	machineID := c.Param("machine_id")
	if err := s.registry.Revoke(c.Request.Context(), machineID, adminSubject(c)); err != nil {
		writeError(c, err)
		return
	}
	writeMessage(c, http.StatusOK, "identity revoked")
}

func (s *Server) handleRotateKey(c *gin.Context) {
	var req rotateRequest
	// body is optional
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "manual rotation"
	}
	fingerprint, err := s.rotator.Rotate(c.Request.Context(), c.Param("machine_id"), adminSubject(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{"new_fingerprint": fingerprint})
}

func (s *Server) handleListSessions(c *gin.Context) {
	sessions, err := s.sessions.List(c.Request.Context(), c.Query("machine_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, sessionView(session))
	}
	writeData(c, http.StatusOK, views)
}

func (s *Server) handleRevokeSession(c *gin.Context) {
	if err := s.sessions.Revoke(c.Request.Context(), c.Param("session_id"), adminSubject(c)); err != nil {
		writeError(c, err)
		return
	}
	writeMessage(c, http.StatusOK, "session revoked")
}

func (s *Server) handleListRotations(c *gin.Context) {
	rotations, err := s.rotator.List(c.Request.Context(), c.Query("machine_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]rotationResponse, 0, len(rotations))
	for _, rotation := range rotations {
		views = append(views, rotationView(rotation))
	}
	writeData(c, http.StatusOK, views)
}

func (s *Server) handleListEvents(c *gin.Context) {
	s.listEvents(c, false)
}

func (s *Server) handleListUnresolvedEvents(c *gin.Context) {
	s.listEvents(c, true)
}

func (s *Server) listEvents(c *gin.Context, onlyUnresolved bool) {
	events, err := s.events.List(c.Request.Context(), onlyUnresolved)
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]eventResponse, 0, len(events))
	for _, event := range events {
		views = append(views, eventView(event))
	}
	writeData(c, http.StatusOK, views)
}

func (s *Server) handleResolveEvent(c *gin.Context) {
	if err := s.events.Resolve(c.Request.Context(), c.Param("event_id"), adminSubject(c)); err != nil {
		writeError(c, err)
		return
	}
	writeMessage(c, http.StatusOK, "event resolved")
}

func (s *Server) handleListAuditLogs(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeErrorCode(c, http.StatusBadRequest, codeMissingFields, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	entries, err := s.audit.List(c.Request.Context(), c.Query("machine_id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]auditLogResponse, 0, len(entries))
	for _, entry := range entries {
		views = append(views, auditLogView(entry))
	}
	writeData(c, http.StatusOK, views)
}

func rotationView(rotation domain.KeyRotationRecord) rotationResponse {
	return rotationResponse{
		RotationID:        rotation.RotationID,
		MachineID:         rotation.MachineID,
		OldKeyFingerprint: rotation.OldKeyFingerprint,
		NewKeyFingerprint: rotation.NewKeyFingerprint,
		RotatedBy:         rotation.RotatedBy,
		RotatedAt:         rotation.RotatedAt.Format(time.RFC3339Nano),
		Reason:            rotation.Reason,
	}
}

func eventView(event domain.SecurityEvent) eventResponse {
	view := eventResponse{
		EventID:    event.EventID,
		MachineID:  event.MachineID,
		EventType:  string(event.EventType),
		Severity:   string(event.Severity),
		Message:    event.Message,
		CreatedAt:  event.CreatedAt.Format(time.RFC3339),
		IsResolved: event.IsResolved,
		ResolvedBy: event.ResolvedBy,
	}
	if event.ResolvedAt != nil {
		formatted := event.ResolvedAt.Format(time.RFC3339)
		view.ResolvedAt = &formatted
	}
	return view
}

func auditLogView(entry domain.ApiAuditLogEntry) auditLogResponse {
	return auditLogResponse{
		RequestID:    entry.RequestID,
		MachineID:    entry.MachineID,
		Endpoint:     entry.Endpoint,
		Method:       entry.Method,
		IPAddress:    entry.IPAddress,
		ResponseCode: entry.ResponseCode,
		PayloadHash:  entry.PayloadHash,
		SignatureOK:  entry.SignatureOK,
		CreatedAt:    entry.CreatedAt.Format(time.RFC3339),
	}
}
