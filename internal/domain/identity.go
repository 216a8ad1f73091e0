package domain

import "time"

type IdentityStatus string

const (
	IdentityStatusUnregistered IdentityStatus = "unregistered"
	IdentityStatusActive       IdentityStatus = "active"
	IdentityStatusRevoked      IdentityStatus = "revoked"
)

// MachineIdentity binds a physical vending machine to its current
// cryptographic credential. Identities are revoked, never deleted, so the
// rotation and audit history stays attributable.
type MachineIdentity struct {
	MachineID       string
	MacAddress      string
	CertFingerprint string
	FirmwareVersion string
	Status          IdentityStatus
	ProvisionedAt   time.Time
	RevokedAt       *time.Time
}

// DeviceSecret is the shared HMAC secret for one machine. The secret never
// leaves local storage after provisioning; only its fingerprint is exposed.
type DeviceSecret struct {
	MachineID string
	Secret    []byte
	UpdatedAt time.Time
}
