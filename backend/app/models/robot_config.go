package models

import "time"

// RobotConfig is a versioned configuration blob for one (device, type) pair.
// Version only ever increases; a robot applies a config when its local
// version is older and reports back via SyncedVersion.
type RobotConfig struct {
	ID            uint   `gorm:"primaryKey"`
	DeviceID      string `gorm:"size:191;uniqueIndex:idx_robot_config_device_type"`
	Type          string `gorm:"size:32;uniqueIndex:idx_robot_config_device_type"`
	Config        string `gorm:"type:text"` // JSON blob
	Version       int
	SyncedVersion int
	SyncError     string `gorm:"size:512"`
	LastSyncedAt  *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}
