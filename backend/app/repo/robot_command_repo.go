package repo

import (
	"time"

	"robot-gateway/backend/app/models"

	"gorm.io/gorm"
)

type RobotCommandRepository struct {
	db *gorm.DB
}

func NewRobotCommandRepository(db *gorm.DB) *RobotCommandRepository {
	return &RobotCommandRepository{db: db}
}

func (r *RobotCommandRepository) Create(cmd *models.RobotCommand) error {
	return r.db.Create(cmd).Error
}

func (r *RobotCommandRepository) FindByCommandID(commandID string) (*models.RobotCommand, error) {
	var cmd models.RobotCommand
	if err := r.db.Where("command_id = ?", commandID).First(&cmd).Error; err != nil {
		return nil, err
	}
	return &cmd, nil
}

// MarkSent records delivery to the robot's transport. The guard keeps a
// command the robot acknowledged mid-send from being demoted back to sent.
func (r *RobotCommandRepository) MarkSent(commandID string) error {
	now := time.Now()
	return r.db.Model(&models.RobotCommand{}).
		Where("command_id = ? AND status = ?", commandID, models.StatusPending).
		Updates(map[string]any{
			"status":  models.StatusSent,
			"sent_at": &now,
		}).Error
}

// MarkAcked finalizes a command with the robot's result. Terminal states are
// immutable; a pending command can ack because the robot's reply may land
// before the sent update commits.
func (r *RobotCommandRepository) MarkAcked(commandID, result string) error {
	now := time.Now()
	return r.db.Model(&models.RobotCommand{}).
		Where("command_id = ? AND status IN ?", commandID,
			[]string{models.StatusPending, models.StatusSent}).
		Updates(map[string]any{
			"status":   models.StatusAcked,
			"result":   result,
			"acked_at": &now,
		}).Error
}

// MarkFailed is terminal; an already resolved command keeps its state.
func (r *RobotCommandRepository) MarkFailed(commandID, lastError string) error {
	return r.db.Model(&models.RobotCommand{}).
		Where("command_id = ? AND status IN ?", commandID,
			[]string{models.StatusPending, models.StatusSent}).
		Updates(map[string]any{
			"status":     models.StatusFailed,
			"last_error": lastError,
		}).Error
}

// MarkPending returns a sent-but-unacknowledged command to the queue and
// counts the retry.
func (r *RobotCommandRepository) MarkPending(commandID, lastError string) error {
	return r.db.Model(&models.RobotCommand{}).
		Where("command_id = ?", commandID).
		Updates(map[string]any{
			"status":     models.StatusPending,
			"last_error": lastError,
			"retries":    gorm.Expr("retries + 1"),
		}).Error
}

// ListByDevice returns a device's commands; with includeDone=false only
// pending and sent ones, oldest first.
func (r *RobotCommandRepository) ListByDevice(deviceID string, includeDone bool) ([]models.RobotCommand, error) {
	q := r.db.Where("device_id = ?", deviceID)
	if !includeDone {
		q = q.Where("status IN ?", []string{models.StatusPending, models.StatusSent})
	}
	var cmds []models.RobotCommand
	if err := q.Order("id ASC").Find(&cmds).Error; err != nil {
		return nil, err
	}
	return cmds, nil
}

// DeviceStatusCount is one row of the per-device status breakdown.
type DeviceStatusCount struct {
	DeviceID string
	Status   string
	Count    int64
}

// StatusCounts aggregates command counts by device and status.
func (r *RobotCommandRepository) StatusCounts() ([]DeviceStatusCount, error) {
	var rows []DeviceStatusCount
	err := r.db.Model(&models.RobotCommand{}).
		Select("device_id, status, count(*) as count").
		Group("device_id, status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
