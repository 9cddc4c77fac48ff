package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// Rule 是引擎求值的规则：一个触发器、顶层隐式 AND 的条件列表、动作列表。
// 规则是原子的：条件门控整个动作列表，不存在逐动作的条件。
type Rule struct {
	ID         uint
	HabitID    uint
	Enabled    bool
	Trigger    Trigger
	Conditions []Condition
	Actions    []Action
}

// Trigger 是触发器封闭变体集合的标记接口。
type Trigger interface {
	triggerTag() string
}

// 触发器标签，持久化时作为 tag+payload 编码的 tag。
const (
	TriggerTagPhaseStart          = "phase_start"
	TriggerTagMinutesIntoPhase    = "minutes_into_phase"
	TriggerTagAbsoluteTime        = "absolute_time"
	TriggerTagOnCompletion        = "on_completion"
	TriggerTagAfterCompletion     = "after_completion"
	TriggerTagAbsoluteTimeInPhase = "absolute_time_in_phase"
)

// PhaseStartTrigger 在阶段起点（±60 秒窗口）触发。
type PhaseStartTrigger struct {
	Phase PhaseName
}

// MinutesIntoPhaseTrigger 在阶段开始后第 N 分钟（±60 秒窗口）触发。
type MinutesIntoPhaseTrigger struct {
	Phase   PhaseName
	Minutes int
}

// AbsoluteTimeTrigger 在墙钟时分完全相等时触发，忽略秒。
type AbsoluteTimeTrigger struct {
	Hour   int
	Minute int
}

// OnCompletionTrigger 在指定习惯产生完成事件时触发。
type OnCompletionTrigger struct {
	HabitID uint
}

// AfterCompletionTrigger 在指定习惯完成后 OffsetMinutes 分钟触发。
// SameDayOnly 要求完成时刻与偏移后时刻属于同一个应用日。
type AfterCompletionTrigger struct {
	HabitID       uint
	OffsetMinutes int
	SameDayOnly   bool
}

// AbsoluteTimeInPhaseTrigger 要求时分相等且当前时刻落在指定阶段内。
type AbsoluteTimeInPhaseTrigger struct {
	Hour   int
	Minute int
	Phase  PhaseName
}

func (PhaseStartTrigger) triggerTag() string          { return TriggerTagPhaseStart }
func (MinutesIntoPhaseTrigger) triggerTag() string    { return TriggerTagMinutesIntoPhase }
func (AbsoluteTimeTrigger) triggerTag() string        { return TriggerTagAbsoluteTime }
func (OnCompletionTrigger) triggerTag() string        { return TriggerTagOnCompletion }
func (AfterCompletionTrigger) triggerTag() string     { return TriggerTagAfterCompletion }
func (AbsoluteTimeInPhaseTrigger) triggerTag() string { return TriggerTagAbsoluteTimeInPhase }

// Condition 是条件封闭变体集合的标记接口，组合子 all/any/not 可递归嵌套。
type Condition interface {
	conditionTag() string
}

const (
	ConditionTagCompletedWithin   = "completed_within"
	ConditionTagCompletedToday    = "completed_today"
	ConditionTagNotCompletedToday = "not_completed_today"
	ConditionTagCompletedInPhase  = "completed_in_phase"
	ConditionTagCountAtLeast      = "count_at_least"
	ConditionTagSleepWakeKnown    = "sleep_wake_known"
	ConditionTagReturnHookExists  = "return_hook_exists"
	ConditionTagWithinPhase       = "within_phase"
	ConditionTagAll               = "all"
	ConditionTagAny               = "any"
	ConditionTagNot               = "not"
)

// CompletedWithinCondition 要求习惯在最近 Minutes 分钟内完成过（恰好 N 分钟视为满足）。
type CompletedWithinCondition struct {
	HabitID uint
	Minutes int
}

// CompletedTodayCondition 要求习惯今天完成过。
type CompletedTodayCondition struct {
	HabitID uint
}

// NotCompletedTodayCondition 要求习惯今天尚未完成。
type NotCompletedTodayCondition struct {
	HabitID uint
}

// CompletedInPhaseCondition 要求习惯在指定阶段内完成过。
type CompletedInPhaseCondition struct {
	HabitID uint
	Phase   PhaseName
}

// CountAtLeastCondition 要求今天的完成次数不少于 Count。
type CountAtLeastCondition struct {
	HabitID uint
	Count   int
}

// SleepWakeKnownCondition 永远为假：睡眠/起床检测按设计未实现，保留占位等待产品澄清。
type SleepWakeKnownCondition struct{}

// ReturnHookExistsCondition 要求存在未响应的回访钩子。
type ReturnHookExistsCondition struct{}

// WithinPhaseCondition 要求当前时刻落在指定阶段内。
type WithinPhaseCondition struct {
	Phase PhaseName
}

// AllCondition 在所有子条件为真时为真（空列表为真）。
type AllCondition struct {
	Children []Condition
}

// AnyCondition 在任一子条件为真时为真（空列表为假）。
type AnyCondition struct {
	Children []Condition
}

// NotCondition 对子条件取反。
type NotCondition struct {
	Child Condition
}

func (CompletedWithinCondition) conditionTag() string   { return ConditionTagCompletedWithin }
func (CompletedTodayCondition) conditionTag() string    { return ConditionTagCompletedToday }
func (NotCompletedTodayCondition) conditionTag() string { return ConditionTagNotCompletedToday }
func (CompletedInPhaseCondition) conditionTag() string  { return ConditionTagCompletedInPhase }
func (CountAtLeastCondition) conditionTag() string      { return ConditionTagCountAtLeast }
func (SleepWakeKnownCondition) conditionTag() string    { return ConditionTagSleepWakeKnown }
func (ReturnHookExistsCondition) conditionTag() string  { return ConditionTagReturnHookExists }
func (WithinPhaseCondition) conditionTag() string       { return ConditionTagWithinPhase }
func (AllCondition) conditionTag() string               { return ConditionTagAll }
func (AnyCondition) conditionTag() string               { return ConditionTagAny }
func (NotCondition) conditionTag() string               { return ConditionTagNot }

// Action 是动作封闭变体集合的标记接口。
type Action interface {
	actionTag() string
}

const (
	ActionTagNotify           = "notify"
	ActionTagScheduleNotify   = "schedule_notify"
	ActionTagCancel           = "cancel"
	ActionTagCreateReturnHook = "create_return_hook"
	ActionTagTriggerSalvage   = "trigger_salvage"
)

// NotifyAction 立即排定一条提醒：默认触发时刻为"现在"，过期时刻为一小时后。
type NotifyAction struct {
	HabitID    uint
	TemplateID string
	Priority   int
}

// ScheduleNotifyAction 在指定时刻排定提醒。
// 仅当触发时刻与"现在"都严格早于过期时刻时才产出决策，窗口已关闭时静默忽略。
type ScheduleNotifyAction struct {
	HabitID    uint
	TemplateID string
	Priority   int
	FireAt     time.Time
	ExpiresAt  time.Time
}

// CancelScope 限定取消动作的匹配范围。
type CancelScope string

const (
	CancelByHabit   CancelScope = "habit"
	CancelByRule    CancelScope = "rule"
	CancelByDateKey CancelScope = "date_key"
	CancelAll       CancelScope = "all"
)

// CancelAction 取消匹配范围内所有已排定的提醒，每条命中产出一个取消决策。
type CancelAction struct {
	Scope   CancelScope
	HabitID uint
	RuleID  uint
	DateKey DateKey
}

// CreateReturnHookAction 创建一条回访钩子提示。
type CreateReturnHookAction struct {
	Prompt string
}

// TriggerSalvageAction 生成一份补救计划。
// 目前是确定性的占位实现：固定的温和文案、空的重排项列表。
type TriggerSalvageAction struct {
	PlanID string
}

func (NotifyAction) actionTag() string           { return ActionTagNotify }
func (ScheduleNotifyAction) actionTag() string   { return ActionTagScheduleNotify }
func (CancelAction) actionTag() string           { return ActionTagCancel }
func (CreateReturnHookAction) actionTag() string { return ActionTagCreateReturnHook }
func (TriggerSalvageAction) actionTag() string   { return ActionTagTriggerSalvage }

// tag+payload 编码的信封结构。数值字段不做 omitempty，避免 0 值丢失。

type triggerEnvelope struct {
	Type        string    `json:"type"`
	Phase       PhaseName `json:"phase,omitempty"`
	Minutes     int       `json:"minutes,omitempty"`
	Hour        int       `json:"hour"`
	Minute      int       `json:"minute"`
	HabitID     uint      `json:"habit_id,omitempty"`
	SameDayOnly bool      `json:"same_day_only,omitempty"`
}

type conditionEnvelope struct {
	Type     string              `json:"type"`
	HabitID  uint                `json:"habit_id,omitempty"`
	Minutes  int                 `json:"minutes,omitempty"`
	Count    int                 `json:"count,omitempty"`
	Phase    PhaseName           `json:"phase,omitempty"`
	Children []conditionEnvelope `json:"children,omitempty"`
}

type actionEnvelope struct {
	Type       string      `json:"type"`
	HabitID    uint        `json:"habit_id,omitempty"`
	RuleID     uint        `json:"rule_id,omitempty"`
	TemplateID string      `json:"template_id,omitempty"`
	Priority   int         `json:"priority"`
	FireAt     *time.Time  `json:"fire_at,omitempty"`
	ExpiresAt  *time.Time  `json:"expires_at,omitempty"`
	Scope      CancelScope `json:"scope,omitempty"`
	DateKey    DateKey     `json:"date_key,omitempty"`
	Prompt     string      `json:"prompt,omitempty"`
	PlanID     string      `json:"plan_id,omitempty"`
}

// EncodeTrigger 将触发器编码为 tag+payload JSON。
func EncodeTrigger(t Trigger) ([]byte, error) {
	env := triggerEnvelope{Type: t.triggerTag()}
	switch v := t.(type) {
	case PhaseStartTrigger:
		env.Phase = v.Phase
	case MinutesIntoPhaseTrigger:
		env.Phase = v.Phase
		env.Minutes = v.Minutes
	case AbsoluteTimeTrigger:
		env.Hour = v.Hour
		env.Minute = v.Minute
	case OnCompletionTrigger:
		env.HabitID = v.HabitID
	case AfterCompletionTrigger:
		env.HabitID = v.HabitID
		env.Minutes = v.OffsetMinutes
		env.SameDayOnly = v.SameDayOnly
	case AbsoluteTimeInPhaseTrigger:
		env.Hour = v.Hour
		env.Minute = v.Minute
		env.Phase = v.Phase
	default:
		return nil, fmt.Errorf("unknown trigger type %T", t)
	}
	return json.Marshal(env)
}

// DecodeTrigger 解析 tag+payload JSON 并校验载荷。
func DecodeTrigger(data []byte) (Trigger, error) {
	var env triggerEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode trigger: %w", err)
	}

	switch env.Type {
	case TriggerTagPhaseStart:
		if !ValidPhase(env.Phase) {
			return nil, fmt.Errorf("trigger %s: invalid phase %q", env.Type, env.Phase)
		}
		return PhaseStartTrigger{Phase: env.Phase}, nil
	case TriggerTagMinutesIntoPhase:
		if !ValidPhase(env.Phase) {
			return nil, fmt.Errorf("trigger %s: invalid phase %q", env.Type, env.Phase)
		}
		return MinutesIntoPhaseTrigger{Phase: env.Phase, Minutes: env.Minutes}, nil
	case TriggerTagAbsoluteTime:
		if err := validateClock(env.Hour, env.Minute); err != nil {
			return nil, fmt.Errorf("trigger %s: %w", env.Type, err)
		}
		return AbsoluteTimeTrigger{Hour: env.Hour, Minute: env.Minute}, nil
	case TriggerTagOnCompletion:
		return OnCompletionTrigger{HabitID: env.HabitID}, nil
	case TriggerTagAfterCompletion:
		return AfterCompletionTrigger{HabitID: env.HabitID, OffsetMinutes: env.Minutes, SameDayOnly: env.SameDayOnly}, nil
	case TriggerTagAbsoluteTimeInPhase:
		if !ValidPhase(env.Phase) {
			return nil, fmt.Errorf("trigger %s: invalid phase %q", env.Type, env.Phase)
		}
		if err := validateClock(env.Hour, env.Minute); err != nil {
			return nil, fmt.Errorf("trigger %s: %w", env.Type, err)
		}
		return AbsoluteTimeInPhaseTrigger{Hour: env.Hour, Minute: env.Minute, Phase: env.Phase}, nil
	default:
		return nil, fmt.Errorf("unknown trigger tag %q", env.Type)
	}
}

func validateClock(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid time %02d:%02d", hour, minute)
	}
	return nil
}

// EncodeConditions 将条件列表编码为 tag+payload JSON 数组。
func EncodeConditions(conditions []Condition) ([]byte, error) {
	envs := make([]conditionEnvelope, 0, len(conditions))
	for _, cond := range conditions {
		env, err := conditionToEnvelope(cond)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return json.Marshal(envs)
}

func conditionToEnvelope(cond Condition) (conditionEnvelope, error) {
	env := conditionEnvelope{Type: cond.conditionTag()}
	switch v := cond.(type) {
	case CompletedWithinCondition:
		env.HabitID = v.HabitID
		env.Minutes = v.Minutes
	case CompletedTodayCondition:
		env.HabitID = v.HabitID
	case NotCompletedTodayCondition:
		env.HabitID = v.HabitID
	case CompletedInPhaseCondition:
		env.HabitID = v.HabitID
		env.Phase = v.Phase
	case CountAtLeastCondition:
		env.HabitID = v.HabitID
		env.Count = v.Count
	case SleepWakeKnownCondition, ReturnHookExistsCondition:
	case WithinPhaseCondition:
		env.Phase = v.Phase
	case AllCondition:
		children, err := childEnvelopes(v.Children)
		if err != nil {
			return conditionEnvelope{}, err
		}
		env.Children = children
	case AnyCondition:
		children, err := childEnvelopes(v.Children)
		if err != nil {
			return conditionEnvelope{}, err
		}
		env.Children = children
	case NotCondition:
		child, err := conditionToEnvelope(v.Child)
		if err != nil {
			return conditionEnvelope{}, err
		}
		env.Children = []conditionEnvelope{child}
	default:
		return conditionEnvelope{}, fmt.Errorf("unknown condition type %T", cond)
	}
	return env, nil
}

func childEnvelopes(children []Condition) ([]conditionEnvelope, error) {
	envs := make([]conditionEnvelope, 0, len(children))
	for _, child := range children {
		env, err := conditionToEnvelope(child)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// DecodeConditions 解析条件列表，任一元素非法即整体报错。
func DecodeConditions(data []byte) ([]Condition, error) {
	var envs []conditionEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("decode conditions: %w", err)
	}

	conditions := make([]Condition, 0, len(envs))
	for _, env := range envs {
		cond, err := envelopeToCondition(env)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}
	return conditions, nil
}

func envelopeToCondition(env conditionEnvelope) (Condition, error) {
	switch env.Type {
	case ConditionTagCompletedWithin:
		return CompletedWithinCondition{HabitID: env.HabitID, Minutes: env.Minutes}, nil
	case ConditionTagCompletedToday:
		return CompletedTodayCondition{HabitID: env.HabitID}, nil
	case ConditionTagNotCompletedToday:
		return NotCompletedTodayCondition{HabitID: env.HabitID}, nil
	case ConditionTagCompletedInPhase:
		if !ValidPhase(env.Phase) {
			return nil, fmt.Errorf("condition %s: invalid phase %q", env.Type, env.Phase)
		}
		return CompletedInPhaseCondition{HabitID: env.HabitID, Phase: env.Phase}, nil
	case ConditionTagCountAtLeast:
		return CountAtLeastCondition{HabitID: env.HabitID, Count: env.Count}, nil
	case ConditionTagSleepWakeKnown:
		return SleepWakeKnownCondition{}, nil
	case ConditionTagReturnHookExists:
		return ReturnHookExistsCondition{}, nil
	case ConditionTagWithinPhase:
		if !ValidPhase(env.Phase) {
			return nil, fmt.Errorf("condition %s: invalid phase %q", env.Type, env.Phase)
		}
		return WithinPhaseCondition{Phase: env.Phase}, nil
	case ConditionTagAll, ConditionTagAny:
		children := make([]Condition, 0, len(env.Children))
		for _, childEnv := range env.Children {
			child, err := envelopeToCondition(childEnv)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if env.Type == ConditionTagAll {
			return AllCondition{Children: children}, nil
		}
		return AnyCondition{Children: children}, nil
	case ConditionTagNot:
		if len(env.Children) != 1 {
			return nil, fmt.Errorf("condition not: expected exactly one child, got %d", len(env.Children))
		}
		child, err := envelopeToCondition(env.Children[0])
		if err != nil {
			return nil, err
		}
		return NotCondition{Child: child}, nil
	default:
		return nil, fmt.Errorf("unknown condition tag %q", env.Type)
	}
}

// EncodeActions 将动作列表编码为 tag+payload JSON 数组。
func EncodeActions(actions []Action) ([]byte, error) {
	envs := make([]actionEnvelope, 0, len(actions))
	for _, action := range actions {
		env := actionEnvelope{Type: action.actionTag()}
		switch v := action.(type) {
		case NotifyAction:
			env.HabitID = v.HabitID
			env.TemplateID = v.TemplateID
			env.Priority = v.Priority
		case ScheduleNotifyAction:
			env.HabitID = v.HabitID
			env.TemplateID = v.TemplateID
			env.Priority = v.Priority
			fireAt, expiresAt := v.FireAt, v.ExpiresAt
			env.FireAt = &fireAt
			env.ExpiresAt = &expiresAt
		case CancelAction:
			env.Scope = v.Scope
			env.HabitID = v.HabitID
			env.RuleID = v.RuleID
			env.DateKey = v.DateKey
		case CreateReturnHookAction:
			env.Prompt = v.Prompt
		case TriggerSalvageAction:
			env.PlanID = v.PlanID
		default:
			return nil, fmt.Errorf("unknown action type %T", action)
		}
		envs = append(envs, env)
	}
	return json.Marshal(envs)
}

// DecodeActions 解析动作列表并校验载荷。
func DecodeActions(data []byte) ([]Action, error) {
	var envs []actionEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("decode actions: %w", err)
	}

	actions := make([]Action, 0, len(envs))
	for _, env := range envs {
		switch env.Type {
		case ActionTagNotify:
			actions = append(actions, NotifyAction{HabitID: env.HabitID, TemplateID: env.TemplateID, Priority: env.Priority})
		case ActionTagScheduleNotify:
			if env.FireAt == nil || env.ExpiresAt == nil {
				return nil, fmt.Errorf("action %s: fire_at and expires_at are required", env.Type)
			}
			actions = append(actions, ScheduleNotifyAction{
				HabitID:    env.HabitID,
				TemplateID: env.TemplateID,
				Priority:   env.Priority,
				FireAt:     *env.FireAt,
				ExpiresAt:  *env.ExpiresAt,
			})
		case ActionTagCancel:
			switch env.Scope {
			case CancelByHabit, CancelByRule, CancelByDateKey, CancelAll:
			default:
				return nil, fmt.Errorf("action %s: invalid scope %q", env.Type, env.Scope)
			}
			// 零值 id 会命中没有习惯/规则归属的提醒，按范围要求显式 id
			if env.Scope == CancelByHabit && env.HabitID == 0 {
				return nil, fmt.Errorf("action %s: habit_id is required for scope %s", env.Type, env.Scope)
			}
			if env.Scope == CancelByRule && env.RuleID == 0 {
				return nil, fmt.Errorf("action %s: rule_id is required for scope %s", env.Type, env.Scope)
			}
			actions = append(actions, CancelAction{Scope: env.Scope, HabitID: env.HabitID, RuleID: env.RuleID, DateKey: env.DateKey})
		case ActionTagCreateReturnHook:
			actions = append(actions, CreateReturnHookAction{Prompt: env.Prompt})
		case ActionTagTriggerSalvage:
			actions = append(actions, TriggerSalvageAction{PlanID: env.PlanID})
		default:
			return nil, fmt.Errorf("unknown action tag %q", env.Type)
		}
	}
	return actions, nil
}
