package db

import "gorm.io/gorm"

// UserSettings 是单行的用户设置
// 阶段起点覆盖以自当日 00:00 的分钟数存储，-1 表示使用默认值
// Tone 目前固定为 gentle_coach
type UserSettings struct {
	gorm.Model
	ResetHour             int    `gorm:"default:2"`
	ResetMinute           int    `gorm:"default:0"`
	DailyCap              int    `gorm:"default:8"`
	CooldownMinutes       int    `gorm:"default:45"`
	PhaseMode             string `gorm:"size:16;default:manual"`
	MorningStartMinutes   int    `gorm:"default:-1"`
	AfternoonStartMinutes int    `gorm:"default:-1"`
	EveningStartMinutes   int    `gorm:"default:-1"`
	NightStartMinutes     int    `gorm:"default:-1"`
	Tone                  string `gorm:"size:32;default:gentle_coach"`
	LocationEnabled       bool   `gorm:"default:false"`
	Latitude              float64
	Longitude             float64
}

// TableName 自定义表名保持命名一致。
func (UserSettings) TableName() string {
	return "user_settings"
}
