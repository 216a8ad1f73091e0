package domain

import "time"

type EventSeverity string

const (
	SeverityLow      EventSeverity = "low"
	SeverityMedium   EventSeverity = "medium"
	SeverityHigh     EventSeverity = "high"
	SeverityCritical EventSeverity = "critical"
)

type SecurityEventType string

const (
	EventUnknownMachine        SecurityEventType = "unknown_machine"
	EventRevokedMachineAttempt SecurityEventType = "revoked_machine_attempt"
	EventMacMismatch           SecurityEventType = "mac_mismatch"
	EventBadSignature          SecurityEventType = "bad_signature"
	EventReplayDetected        SecurityEventType = "replay_detected"
	EventStaleTimestamp        SecurityEventType = "stale_timestamp"
	EventRateLimited           SecurityEventType = "rate_limited"
	EventIdentityRevoked       SecurityEventType = "identity_revoked"
	EventIdentityReprovisioned SecurityEventType = "identity_reprovisioned"
	EventKeyRotated            SecurityEventType = "key_rotated"
	EventSessionRevoked        SecurityEventType = "session_revoked"
)

// severityByType is the fixed classification table. Severity is never
// caller-supplied so a misbehaving detector cannot under-report.
var severityByType = map[SecurityEventType]EventSeverity{
	EventUnknownMachine:        SeverityMedium,
	EventRevokedMachineAttempt: SeverityMedium,
	EventMacMismatch:           SeverityHigh,
	EventBadSignature:          SeverityHigh,
	EventReplayDetected:        SeverityHigh,
	EventStaleTimestamp:        SeverityMedium,
	EventRateLimited:           SeverityMedium,
	EventIdentityRevoked:       SeverityLow,
	EventIdentityReprovisioned: SeverityLow,
	EventKeyRotated:            SeverityLow,
	EventSessionRevoked:        SeverityLow,
}

// SeverityFor returns the fixed severity for a known event type.
func SeverityFor(eventType SecurityEventType) (EventSeverity, bool) {
	severity, ok := severityByType[eventType]
	return severity, ok
}

// SecurityEvent records an anomaly for operator review. MachineID is empty
// for events that cannot be attributed to a provisioned machine.
type SecurityEvent struct {
	EventID    string
	MachineID  string
	EventType  SecurityEventType
	Severity   EventSeverity
	Message    string
	CreatedAt  time.Time
	IsResolved bool
	ResolvedAt *time.Time
	ResolvedBy *string
}
