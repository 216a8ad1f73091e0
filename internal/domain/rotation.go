package domain

import "time"

// Reserved actor for rotations initiated by the machine itself rather than
// an operator.
const ActorMachine = "__machine__"

const (
	RotationReasonInitial       = "initial provisioning"
	RotationReasonReprovisioned = "re-provisioned"
)

// KeyRotationRecord journals one secret replacement. Records are append-only
// and form a chain per machine: each record's OldKeyFingerprint equals the
// previous record's NewKeyFingerprint, nil only for the first provisioning.
type KeyRotationRecord struct {
	RotationID        string
	MachineID         string
	OldKeyFingerprint *string
	NewKeyFingerprint string
	RotatedBy         *string
	RotatedAt         time.Time
	Reason            string
}
