package models

import "time"

// Command lifecycle states. Transitions are monotonic:
// pending -> sent -> acked|failed, with sent -> pending allowed only for
// ack-timeout retries up to the configured limit.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusAcked   = "acked"
	StatusFailed  = "failed"
)

// RobotCommand is the durable record of a command dispatched to a robot.
// Completed commands are kept for audit, not deleted by the dispatcher.
type RobotCommand struct {
	ID        uint   `gorm:"primaryKey"`
	CommandID string `gorm:"uniqueIndex;size:64;not null"`
	DeviceID  string `gorm:"size:191;index"`
	Type      string `gorm:"size:64"`
	Code      int
	Target    string `gorm:"size:191"`
	Params    string `gorm:"type:text"` // JSON payload
	Priority  int
	Status    string `gorm:"size:32;index"`
	Retries   int
	Result    string    `gorm:"type:text"` // JSON result from the robot
	LastError string    `gorm:"size:512"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
	SentAt    *time.Time
	AckedAt   *time.Time
}
