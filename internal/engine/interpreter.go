package engine

import (
	"fmt"
	"time"
)

// 触发器的对时窗口：阶段起点类触发允许 ±60 秒的调度抖动。
const triggerWindow = 60 * time.Second

// Evaluate 按输入顺序对规则求值，返回未经节流的原始决策列表。
// 求值是纯函数：相同的 (rules, ctx, event) 输入得到逐位相同的输出。
func Evaluate(rules []Rule, ctx Context, event *Completion) []Decision {
	var decisions []Decision
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if !triggerMatches(rule.Trigger, ctx, event) {
			continue
		}
		if !conditionsPass(rule.Conditions, ctx) {
			continue
		}
		decisions = append(decisions, executeActions(rule, ctx)...)
	}
	return decisions
}

func triggerMatches(trigger Trigger, ctx Context, event *Completion) bool {
	switch t := trigger.(type) {
	case PhaseStartTrigger:
		interval, ok := ctx.Phases.Interval(t.Phase)
		if !ok {
			return false
		}
		return withinWindow(ctx.Now, interval.Start)
	case MinutesIntoPhaseTrigger:
		interval, ok := ctx.Phases.Interval(t.Phase)
		if !ok {
			return false
		}
		target := interval.Start.Add(time.Duration(t.Minutes) * time.Minute)
		return withinWindow(ctx.Now, target)
	case AbsoluteTimeTrigger:
		return ctx.Now.Hour() == t.Hour && ctx.Now.Minute() == t.Minute
	case OnCompletionTrigger:
		return event != nil && event.HabitID == t.HabitID
	case AfterCompletionTrigger:
		if event == nil || event.HabitID != t.HabitID {
			return false
		}
		if t.SameDayOnly {
			offset := event.At.Add(time.Duration(t.OffsetMinutes) * time.Minute)
			if ctx.DateKeyFor(event.At) != ctx.DateKeyFor(offset) {
				return false
			}
		}
		return true
	case AbsoluteTimeInPhaseTrigger:
		if ctx.Now.Hour() != t.Hour || ctx.Now.Minute() != t.Minute {
			return false
		}
		interval, ok := ctx.Phases.Interval(t.Phase)
		if !ok {
			return false
		}
		return interval.Contains(ctx.Now)
	default:
		return false
	}
}

func withinWindow(now, target time.Time) bool {
	delta := now.Sub(target)
	if delta < 0 {
		delta = -delta
	}
	return delta <= triggerWindow
}

// conditionsPass 对顶层条件列表做隐式 AND，空列表视为真。
func conditionsPass(conditions []Condition, ctx Context) bool {
	for _, cond := range conditions {
		if !evalCondition(cond, ctx) {
			return false
		}
	}
	return true
}

func evalCondition(cond Condition, ctx Context) bool {
	switch c := cond.(type) {
	case CompletedWithinCondition:
		return ctx.CompletedWithin(c.HabitID, c.Minutes)
	case CompletedTodayCondition:
		return ctx.IsCompleted(c.HabitID)
	case NotCompletedTodayCondition:
		return !ctx.IsCompleted(c.HabitID)
	case CompletedInPhaseCondition:
		return ctx.CompletedInPhase(c.HabitID, c.Phase)
	case CountAtLeastCondition:
		return ctx.CompletionCount(c.HabitID) >= c.Count
	case SleepWakeKnownCondition:
		// 睡眠/起床检测未实现，恒为假
		return false
	case ReturnHookExistsCondition:
		return len(ctx.PendingReturnHooks()) > 0
	case WithinPhaseCondition:
		interval, ok := ctx.Phases.Interval(c.Phase)
		return ok && interval.Contains(ctx.Now)
	case AllCondition:
		for _, child := range c.Children {
			if !evalCondition(child, ctx) {
				return false
			}
		}
		return true
	case AnyCondition:
		for _, child := range c.Children {
			if evalCondition(child, ctx) {
				return true
			}
		}
		return false
	case NotCondition:
		return !evalCondition(c.Child, ctx)
	default:
		return false
	}
}

// notify 动作的默认过期窗口。
const defaultNotifyExpiry = time.Hour

func executeActions(rule Rule, ctx Context) []Decision {
	var decisions []Decision
	for _, action := range rule.Actions {
		switch a := action.(type) {
		case NotifyAction:
			fireAt := ctx.Now
			decisions = append(decisions, ScheduleReminderDecision{
				HabitID:    a.HabitID,
				RuleID:     rule.ID,
				DateKey:    ctx.DateKey,
				FireAt:     fireAt,
				ExpiresAt:  fireAt.Add(defaultNotifyExpiry),
				Priority:   a.Priority,
				TemplateID: a.TemplateID,
			})
		case ScheduleNotifyAction:
			// 窗口已关闭的排定静默不产出，规则迟到不是错误
			if !a.FireAt.Before(a.ExpiresAt) || !ctx.Now.Before(a.ExpiresAt) {
				continue
			}
			decisions = append(decisions, ScheduleReminderDecision{
				HabitID:    a.HabitID,
				RuleID:     rule.ID,
				DateKey:    ctx.DateKeyFor(a.FireAt),
				FireAt:     a.FireAt,
				ExpiresAt:  a.ExpiresAt,
				Priority:   a.Priority,
				TemplateID: a.TemplateID,
			})
		case CancelAction:
			for _, reminder := range ctx.Reminders {
				if reminder.State != ReminderScheduled {
					continue
				}
				if !cancelMatches(a, reminder) {
					continue
				}
				decisions = append(decisions, CancelReminderDecision{ReminderID: reminder.ID, Handle: reminder.Handle})
			}
		case CreateReturnHookAction:
			decisions = append(decisions, CreateReturnHookDecision{Prompt: a.Prompt, DateKey: ctx.DateKey})
		case TriggerSalvageAction:
			decisions = append(decisions, salvagePlanFor(a.PlanID, ctx.DateKey))
		}
	}
	return decisions
}

func cancelMatches(action CancelAction, reminder Reminder) bool {
	switch action.Scope {
	case CancelByHabit:
		return reminder.HabitID == action.HabitID
	case CancelByRule:
		return reminder.RuleID == action.RuleID
	case CancelByDateKey:
		return reminder.DateKey == action.DateKey
	case CancelAll:
		return true
	default:
		return false
	}
}

// salvagePlanFor 生成确定性的占位补救计划：固定的温和文案，空重排项。
// 重排算法是预留的扩展点，当前行为由测试钉死。
func salvagePlanFor(planID string, key DateKey) CreateSalvagePlanDecision {
	return CreateSalvagePlanDecision{
		PlanID:  planID,
		DateKey: key,
		Title:   "别担心，我们来调整一下",
		Message: fmt.Sprintf("今天（%s）的节奏被打乱也没关系，挑一件最重要的小事完成就好。", key),
		Items:   []SalvageItem{},
	}
}
