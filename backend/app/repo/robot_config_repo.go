package repo

import (
	"time"

	"robot-gateway/backend/app/models"

	"gorm.io/gorm"
)

type RobotConfigRepository struct {
	db *gorm.DB
}

func NewRobotConfigRepository(db *gorm.DB) *RobotConfigRepository {
	return &RobotConfigRepository{db: db}
}

func (r *RobotConfigRepository) Find(deviceID, cfgType string) (*models.RobotConfig, error) {
	var cfg models.RobotConfig
	if err := r.db.Where("device_id = ? AND type = ?", deviceID, cfgType).First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *RobotConfigRepository) ListByDevice(deviceID string) ([]models.RobotConfig, error) {
	var cfgs []models.RobotConfig
	if err := r.db.Where("device_id = ?", deviceID).Order("type ASC").Find(&cfgs).Error; err != nil {
		return nil, err
	}
	return cfgs, nil
}

// Upsert stores a new config blob, bumping the version of an existing row.
// The write happens in a transaction so concurrent setters cannot produce
// duplicate versions.
func (r *RobotConfigRepository) Upsert(deviceID, cfgType, config string) (*models.RobotConfig, error) {
	var out *models.RobotConfig
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var cfg models.RobotConfig
		err := tx.Where("device_id = ? AND type = ?", deviceID, cfgType).First(&cfg).Error
		switch {
		case err == nil:
			cfg.Config = config
			cfg.Version++
			cfg.SyncError = ""
			if err := tx.Save(&cfg).Error; err != nil {
				return err
			}
		case err == gorm.ErrRecordNotFound:
			cfg = models.RobotConfig{DeviceID: deviceID, Type: cfgType, Config: config, Version: 1}
			if err := tx.Create(&cfg).Error; err != nil {
				return err
			}
		default:
			return err
		}
		out = &cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkSynced records that the robot applied the given version. Only a report
// for the current or a newer stored version counts; anything older, or below
// what was already synced, leaves the row untouched.
func (r *RobotConfigRepository) MarkSynced(deviceID, cfgType string, version int) error {
	now := time.Now()
	return r.db.Model(&models.RobotConfig{}).
		Where("device_id = ? AND type = ? AND version <= ? AND synced_version < ?",
			deviceID, cfgType, version, version).
		Updates(map[string]any{
			"synced_version": version,
			"last_synced_at": &now,
			"sync_error":     "",
		}).Error
}

// MarkSyncError stores the robot's reported failure to apply a config.
func (r *RobotConfigRepository) MarkSyncError(deviceID, cfgType, msg string) error {
	return r.db.Model(&models.RobotConfig{}).
		Where("device_id = ? AND type = ?", deviceID, cfgType).
		Update("sync_error", msg).Error
}
