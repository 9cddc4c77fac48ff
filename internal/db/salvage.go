package db

import "gorm.io/gorm"

// SalvagePlan 是 trigger_salvage 动作产出的补救计划
// ItemsJSON 当前恒为空数组，字段保留给未来的重排算法
// 只有该动作会创建计划，别处不会隐式生成
type SalvagePlan struct {
	gorm.Model
	PlanID    string `gorm:"size:64;uniqueIndex"`
	DateKey   string `gorm:"size:10;index"`
	Title     string
	Message   string `gorm:"type:text"`
	ItemsJSON string `gorm:"type:text"`
	Accepted  bool   `gorm:"default:false"`
}
