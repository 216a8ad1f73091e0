// Package db implements the trust stores on Postgres via gorm. Multi-row
// mutations (rotation, revocation cascade) run inside a single transaction.
package db

import (
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errDBUnavailable = errors.New("database unavailable")

func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&MachineIdentityModel{},
		&DeviceSecretModel{},
		&DeviceSessionModel{},
		&KeyRotationModel{},
		&SecurityEventModel{},
		&ApiAuditLogModel{},
	)
}
