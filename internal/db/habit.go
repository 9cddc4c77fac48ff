package db

import (
	"time"

	"gorm.io/gorm"
)

// 习惯类别为封闭枚举，便于统计/筛选。
const (
	CategoryHealth = "health"
	CategoryMind   = "mind"
	CategoryWork   = "work"
	CategoryHome   = "home"
	CategorySocial = "social"
	CategoryOther  = "other"
)

// Categories 按展示顺序列出全部类别。
var Categories = []string{CategoryHealth, CategoryMind, CategoryWork, CategoryHome, CategorySocial, CategoryOther}

// Habit 定义了习惯模型
// DefaultPhase 是习惯默认归属的阶段（morning/afternoon/evening/night）
// Active 控制习惯是否参与规则求值
// 标识不可变；标题/类别/阶段/启用状态通过显式更新修改
type Habit struct {
	gorm.Model
	Title        string `gorm:"not null"`
	Category     string `gorm:"index"`
	DefaultPhase string
	Active       bool `gorm:"default:true"`
}

// CompletionEvent 记录一次习惯完成
// DateKey 一律由引擎根据时间戳和当时的重置设置计算，绝不抄墙钟日期
// Metadata 为自由格式 JSON 文本，LateCorrection 标记事后补记
type CompletionEvent struct {
	gorm.Model
	HabitID        uint  `gorm:"index"`
	Habit          Habit `gorm:"constraint:OnDelete:CASCADE"`
	CompletedAt    time.Time
	DateKey        string `gorm:"size:10;index"`
	Metadata       string `gorm:"type:text"`
	LateCorrection bool
}

// TableName 自定义表名保持命名一致。
func (CompletionEvent) TableName() string {
	return "completion_events"
}
