package engine

import (
	"sort"
	"time"
)

// Throttle 对排定类决策执行每日上限与冷却的准入控制。
// 非排定类决策原样通过；被丢弃的排定决策静默消失，不报告也不重试。
func Throttle(decisions []Decision, ctx Context) []Decision {
	var candidates []ScheduleReminderDecision
	var others []Decision

	for _, decision := range decisions {
		if schedule, ok := decision.(ScheduleReminderDecision); ok {
			candidates = append(candidates, schedule)
			continue
		}
		others = append(others, decision)
	}

	slots := ctx.Settings.DailyCap - ctx.ScheduledReminderCount()
	if slots < 0 {
		slots = 0
	}

	// 优先级降序，同级按触发时刻升序，先触发者胜
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].FireAt.Before(candidates[j].FireAt)
	})

	if len(candidates) > slots {
		candidates = candidates[:slots]
	}

	if latest, ok := latestScheduled(ctx.Reminders); ok {
		cooldown := time.Duration(ctx.Settings.CooldownMinutes) * time.Minute
		earliest := latest.FireAt.Add(cooldown)
		kept := candidates[:0]
		for _, candidate := range candidates {
			if candidate.FireAt.Before(earliest) {
				continue
			}
			kept = append(kept, candidate)
		}
		candidates = kept
	}

	result := make([]Decision, 0, len(candidates)+len(others))
	for _, candidate := range candidates {
		result = append(result, candidate)
	}
	result = append(result, others...)
	return result
}

// latestScheduled 返回触发时刻最晚的一条已排定提醒。
// 不存在已排定提醒时当次求值不做冷却过滤，当天首条提醒不受冷却约束。
func latestScheduled(reminders []Reminder) (Reminder, bool) {
	var latest Reminder
	found := false
	for _, reminder := range reminders {
		if reminder.State != ReminderScheduled {
			continue
		}
		if !found || reminder.FireAt.After(latest.FireAt) {
			latest = reminder
			found = true
		}
	}
	return latest, found
}
