package service

import (
	"errors"
	"fmt"

	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/engine"
	"gorm.io/gorm"
)

var (
	// ErrRuleNotFound 在指定规则不存在时返回
	ErrRuleNotFound = errors.New("rule not found")
	// ErrRuleInvalidPayload 当触发器/条件/动作载荷非法时返回
	ErrRuleInvalidPayload = errors.New("invalid rule payload")
)

// RuleService 负责规则的持久化与解码
// 写入时编码为 tag+payload JSON，读取时解码校验；
// 解码失败的行在进入引擎前被跳过并计数，引擎假定拿到的都是合法实例
type RuleService struct {
	db *gorm.DB
}

// RuleInput 定义创建/更新规则时可配置字段
type RuleInput struct {
	HabitID    uint
	Enabled    bool
	Trigger    engine.Trigger
	Conditions []engine.Condition
	Actions    []engine.Action
}

// NewRuleService 构造 RuleService
func NewRuleService(gdb *gorm.DB) *RuleService {
	return &RuleService{db: gdb}
}

// Create 新建规则
func (s *RuleService) Create(input RuleInput) (*db.Rule, error) {
	record, err := encodeRule(input)
	if err != nil {
		return nil, err
	}

	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	return record, nil
}

// Update 更新规则
func (s *RuleService) Update(id uint, input RuleInput) (*db.Rule, error) {
	var existing db.Rule
	if err := s.db.First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("find rule: %w", err)
	}

	encoded, err := encodeRule(input)
	if err != nil {
		return nil, err
	}

	existing.HabitID = encoded.HabitID
	existing.Enabled = encoded.Enabled
	existing.TriggerJSON = encoded.TriggerJSON
	existing.ConditionsJSON = encoded.ConditionsJSON
	existing.ActionsJSON = encoded.ActionsJSON

	if err := s.db.Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}
	return &existing, nil
}

// Get 根据 ID 获取规则
func (s *RuleService) Get(id uint) (*db.Rule, error) {
	var rule db.Rule
	if err := s.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return &rule, nil
}

// List 返回全部规则行
func (s *RuleService) List() ([]db.Rule, error) {
	var rules []db.Rule
	if err := s.db.Order("id ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

// Delete 删除规则
func (s *RuleService) Delete(id uint) error {
	if err := s.db.Delete(&db.Rule{}, id).Error; err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

// LoadEngineRules 解码全部启用规则，跳过载荷损坏的行并返回跳过数。
// 按主键顺序返回，规则求值顺序即输入顺序。
func (s *RuleService) LoadEngineRules() ([]engine.Rule, int, error) {
	rows, err := s.List()
	if err != nil {
		return nil, 0, err
	}

	rules := make([]engine.Rule, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		decoded, err := DecodeRule(row)
		if err != nil {
			skipped++
			continue
		}
		rules = append(rules, decoded)
	}
	return rules, skipped, nil
}

// DecodeRule 把持久化行解码为引擎规则。
func DecodeRule(row db.Rule) (engine.Rule, error) {
	trigger, err := engine.DecodeTrigger([]byte(row.TriggerJSON))
	if err != nil {
		return engine.Rule{}, fmt.Errorf("%w: %v", ErrRuleInvalidPayload, err)
	}

	var conditions []engine.Condition
	if row.ConditionsJSON != "" {
		conditions, err = engine.DecodeConditions([]byte(row.ConditionsJSON))
		if err != nil {
			return engine.Rule{}, fmt.Errorf("%w: %v", ErrRuleInvalidPayload, err)
		}
	}

	actions, err := engine.DecodeActions([]byte(row.ActionsJSON))
	if err != nil {
		return engine.Rule{}, fmt.Errorf("%w: %v", ErrRuleInvalidPayload, err)
	}

	return engine.Rule{
		ID:         row.ID,
		HabitID:    row.HabitID,
		Enabled:    row.Enabled,
		Trigger:    trigger,
		Conditions: conditions,
		Actions:    actions,
	}, nil
}

func encodeRule(input RuleInput) (*db.Rule, error) {
	if input.Trigger == nil {
		return nil, fmt.Errorf("%w: trigger is required", ErrRuleInvalidPayload)
	}
	if len(input.Actions) == 0 {
		return nil, fmt.Errorf("%w: at least one action is required", ErrRuleInvalidPayload)
	}

	triggerJSON, err := engine.EncodeTrigger(input.Trigger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuleInvalidPayload, err)
	}

	conditionsJSON, err := engine.EncodeConditions(input.Conditions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuleInvalidPayload, err)
	}

	actionsJSON, err := engine.EncodeActions(input.Actions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuleInvalidPayload, err)
	}

	return &db.Rule{
		HabitID:        input.HabitID,
		Enabled:        input.Enabled,
		TriggerJSON:    string(triggerJSON),
		ConditionsJSON: string(conditionsJSON),
		ActionsJSON:    string(actionsJSON),
	}, nil
}
