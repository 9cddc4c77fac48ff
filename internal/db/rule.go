package db

import "gorm.io/gorm"

// Rule 是持久化形态的调度规则
// 触发器/条件/动作以 tag+payload JSON 文本存储，读取时由服务层解码校验；
// 解码失败的行在进入引擎前被跳过，这是持久层的职责而非引擎的
type Rule struct {
	gorm.Model
	HabitID        uint   `gorm:"index"`
	Habit          Habit  `gorm:"constraint:OnDelete:CASCADE"`
	Enabled        bool   `gorm:"default:true"`
	TriggerJSON    string `gorm:"type:text;not null"`
	ConditionsJSON string `gorm:"type:text"`
	ActionsJSON    string `gorm:"type:text;not null"`
}
