package models

import "time"

// SessionSlot is one serialized session slot. A nil ExpiresAt never expires.
type SessionSlot struct {
	Key       string     `gorm:"column:slot_key;type:varchar(255);primaryKey"`
	Value     string     `gorm:"column:value;type:text;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index:session_slots_expires_at_idx"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (SessionSlot) TableName() string {
	return "session_slots"
}
