package db

import (
	"time"

	"gorm.io/gorm"
)

// Reminder 是一条提醒
// Handle 是通知子系统可见的外部句柄（uuid）
// State 单调流转：scheduled → fired|canceled|expired|completed|skipped|snoozed，
// 小睡不复活原实体，而是新建一条提醒
// 创建时必须满足 ExpiresAt ≥ FireAt
type Reminder struct {
	gorm.Model
	HabitID    *uint  `gorm:"index"`
	RuleID     *uint  `gorm:"index"`
	DateKey    string `gorm:"size:10;index"`
	FireAt     time.Time
	ExpiresAt  time.Time
	Handle     string `gorm:"size:64;uniqueIndex"`
	State      string `gorm:"size:16;index"`
	Priority   int
	TemplateID string `gorm:"size:64"`
}

// ReturnHook 是延迟到之后某天展示的回访提示。
type ReturnHook struct {
	gorm.Model
	Prompt    string `gorm:"type:text"`
	DateKey   string `gorm:"size:10;index"`
	Responded bool   `gorm:"default:false"`
}
