package domain

import "time"

// ApiAuditLogEntry is one row per device-facing request. The trail is
// append-only and best-effort: persisting it must never fail or delay the
// request that produced it.
type ApiAuditLogEntry struct {
	RequestID    string
	MachineID    string
	Endpoint     string
	Method       string
	IPAddress    string
	ResponseCode int
	PayloadHash  string
	SignatureOK  bool
	CreatedAt    time.Time
}
