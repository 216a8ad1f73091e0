package db

import "time"

type MachineIdentityModel struct {
	MachineID       string `gorm:"primaryKey"`
	MacAddress      string `gorm:"uniqueIndex;not null"`
	CertFingerprint string `gorm:"index;not null"`
	FirmwareVersion string
	Status          string    `gorm:"index;not null"`
	ProvisionedAt   time.Time `gorm:"not null"`
	RevokedAt       *time.Time
}

func (MachineIdentityModel) TableName() string {
	return "machine_identities"
}

type DeviceSecretModel struct {
	MachineID string    `gorm:"primaryKey"`
	Secret    []byte    `gorm:"type:bytea;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (DeviceSecretModel) TableName() string {
	return "device_secrets"
}

type DeviceSessionModel struct {
	SessionID  string    `gorm:"type:uuid;primaryKey"`
	MachineID  string    `gorm:"index;not null"`
	IssuedAt   time.Time `gorm:"index;not null"`
	ExpiresAt  time.Time `gorm:"index;not null"`
	LastSeenAt *time.Time
	IPAddress  string
	IsRevoked  bool `gorm:"index;not null"`
}

func (DeviceSessionModel) TableName() string {
	return "device_sessions"
}

type KeyRotationModel struct {
	RotationID        string `gorm:"type:uuid;primaryKey"`
	MachineID         string `gorm:"index;not null"`
	OldKeyFingerprint *string
	NewKeyFingerprint string `gorm:"not null"`
	RotatedBy         *string
	RotatedAt         time.Time `gorm:"index;not null"`
	Reason            string
}

func (KeyRotationModel) TableName() string {
	return "key_rotation_log"
}

type SecurityEventModel struct {
	EventID    string `gorm:"type:uuid;primaryKey"`
	MachineID  string `gorm:"index"`
	EventType  string `gorm:"index;not null"`
	Severity   string `gorm:"index;not null"`
	Message    string
	CreatedAt  time.Time `gorm:"index;not null"`
	IsResolved bool      `gorm:"index;not null"`
	ResolvedAt *time.Time
	ResolvedBy *string
}

func (SecurityEventModel) TableName() string {
	return "security_events"
}

type ApiAuditLogModel struct {
	RequestID    string `gorm:"type:uuid;primaryKey"`
	MachineID    string `gorm:"index"`
	Endpoint     string `gorm:"index;not null"`
	Method       string `gorm:"not null"`
	IPAddress    string
	ResponseCode int    `gorm:"index;not null"`
	PayloadHash  string `gorm:"index"`
	SignatureOK  bool   `gorm:"index;not null"`
	CreatedAt    time.Time `gorm:"index;not null"`
}

func (ApiAuditLogModel) TableName() string {
	return "api_audit_logs"
}
