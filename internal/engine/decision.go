package engine

import "time"

// Decision 是引擎唯一的输出类型：排定提醒、取消提醒、创建回访钩子或补救计划。
type Decision interface {
	decisionTag() string
}

const (
	DecisionTagScheduleReminder  = "schedule_reminder"
	DecisionTagCancelReminder    = "cancel_reminder"
	DecisionTagCreateReturnHook  = "create_return_hook"
	DecisionTagCreateSalvagePlan = "create_salvage_plan"
)

// ScheduleReminderDecision 指示调用方排定一条新提醒。
type ScheduleReminderDecision struct {
	HabitID    uint
	RuleID     uint
	DateKey    DateKey
	FireAt     time.Time
	ExpiresAt  time.Time
	Priority   int
	TemplateID string
}

// CancelReminderDecision 指示调用方取消一条已排定的提醒。
type CancelReminderDecision struct {
	ReminderID uint
	Handle     string
}

// CreateReturnHookDecision 指示调用方创建一条回访钩子。
type CreateReturnHookDecision struct {
	Prompt  string
	DateKey DateKey
}

// SalvageItem 是补救计划中的单条重排建议。
// 占位实现下列表恒为空，字段保留给未来的重排算法。
type SalvageItem struct {
	HabitID    uint   `json:"habit_id"`
	Suggestion string `json:"suggestion"`
}

// CreateSalvagePlanDecision 指示调用方创建一份补救计划。
type CreateSalvagePlanDecision struct {
	PlanID  string
	DateKey DateKey
	Title   string
	Message string
	Items   []SalvageItem
}

func (ScheduleReminderDecision) decisionTag() string  { return DecisionTagScheduleReminder }
func (CancelReminderDecision) decisionTag() string    { return DecisionTagCancelReminder }
func (CreateReturnHookDecision) decisionTag() string  { return DecisionTagCreateReturnHook }
func (CreateSalvagePlanDecision) decisionTag() string { return DecisionTagCreateSalvagePlan }
