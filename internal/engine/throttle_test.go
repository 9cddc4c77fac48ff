package engine

import (
	"testing"
	"time"
)

func throttleContext(t *testing.T, reminders []Reminder) Context {
	t.Helper()
	now := time.Date(2025, 1, 5, 18, 0, 0, 0, time.UTC)
	return BuildContext(now, DefaultSettings(), nil, nil, reminders, nil)
}

func scheduledReminders(n int, base time.Time) []Reminder {
	reminders := make([]Reminder, 0, n)
	for i := 0; i < n; i++ {
		reminders = append(reminders, Reminder{
			ID:     uint(i + 1),
			State:  ReminderScheduled,
			FireAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return reminders
}

func TestThrottleDropsEverythingAtCap(t *testing.T) {
	// 上限 8、已有 8 条排定：任何新决策都被丢弃
	base := time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)
	ctx := throttleContext(t, scheduledReminders(8, base))

	decisions := []Decision{
		ScheduleReminderDecision{HabitID: 1, FireAt: ctx.Now, Priority: 5},
	}
	if got := Throttle(decisions, ctx); len(got) != 0 {
		t.Fatalf("expected zero decisions at cap, got %d", len(got))
	}
}

func TestThrottlePriorityWinsLastSlot(t *testing.T) {
	// 剩一个名额时，优先级 10 压过优先级 1
	base := time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)
	reminders := scheduledReminders(7, base)
	ctx := throttleContext(t, reminders)

	// 冷却相对最近一条 08:06 的排定，候选放在冷却窗之后
	fireAt := base.Add(6*time.Minute + time.Duration(ctx.Settings.CooldownMinutes)*time.Minute)
	decisions := []Decision{
		ScheduleReminderDecision{HabitID: 1, FireAt: fireAt, Priority: 1, TemplateID: "low"},
		ScheduleReminderDecision{HabitID: 2, FireAt: fireAt, Priority: 10, TemplateID: "high"},
	}

	got := Throttle(decisions, ctx)
	if len(got) != 1 {
		t.Fatalf("expected a single survivor, got %d", len(got))
	}
	survivor := got[0].(ScheduleReminderDecision)
	if survivor.Priority != 10 {
		t.Fatalf("expected priority 10 to win, got %d", survivor.Priority)
	}
}

func TestThrottleEqualPriorityEarlierFireWins(t *testing.T) {
	base := time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)
	ctx := throttleContext(t, scheduledReminders(7, base))

	early := base.Add(2 * time.Hour)
	decisions := []Decision{
		ScheduleReminderDecision{HabitID: 1, FireAt: early.Add(time.Hour), Priority: 3, TemplateID: "later"},
		ScheduleReminderDecision{HabitID: 2, FireAt: early, Priority: 3, TemplateID: "earlier"},
	}

	got := Throttle(decisions, ctx)
	if len(got) != 1 {
		t.Fatalf("expected a single survivor, got %d", len(got))
	}
	if got[0].(ScheduleReminderDecision).TemplateID != "earlier" {
		t.Fatal("equal priority ties must go to the earlier fire time")
	}
}

func TestThrottleCooldownFiltersCloseCandidates(t *testing.T) {
	latest := time.Date(2025, 1, 5, 17, 30, 0, 0, time.UTC)
	ctx := throttleContext(t, []Reminder{
		{ID: 1, State: ReminderScheduled, FireAt: latest},
	})

	decisions := []Decision{
		// 17:50：距最近排定 20 分钟，小于 45 分钟冷却，被丢弃
		ScheduleReminderDecision{HabitID: 1, FireAt: latest.Add(20 * time.Minute), Priority: 5, TemplateID: "too_close"},
		// 18:15：恰好 45 分钟，保留
		ScheduleReminderDecision{HabitID: 2, FireAt: latest.Add(45 * time.Minute), Priority: 1, TemplateID: "spaced"},
	}

	got := Throttle(decisions, ctx)
	if len(got) != 1 {
		t.Fatalf("expected one survivor after cooldown, got %d", len(got))
	}
	if got[0].(ScheduleReminderDecision).TemplateID != "spaced" {
		t.Fatal("only the candidate outside the cooldown window may survive")
	}
}

func TestThrottleNoCooldownWithoutExistingReminders(t *testing.T) {
	// 当天首条提醒不受冷却约束
	ctx := throttleContext(t, nil)

	decisions := []Decision{
		ScheduleReminderDecision{HabitID: 1, FireAt: ctx.Now, Priority: 1, TemplateID: "first"},
	}
	got := Throttle(decisions, ctx)
	if len(got) != 1 {
		t.Fatalf("first reminder of the day must pass, got %d decisions", len(got))
	}
}

func TestThrottlePassesNonScheduleDecisionsThrough(t *testing.T) {
	base := time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)
	ctx := throttleContext(t, scheduledReminders(8, base))

	decisions := []Decision{
		ScheduleReminderDecision{HabitID: 1, FireAt: ctx.Now, Priority: 5},
		CancelReminderDecision{ReminderID: 3, Handle: "h3"},
		CreateReturnHookDecision{Prompt: "回来看看", DateKey: "2025-01-05"},
	}

	got := Throttle(decisions, ctx)
	if len(got) != 2 {
		t.Fatalf("non-schedule decisions must pass through, got %d", len(got))
	}
	if _, ok := got[0].(CancelReminderDecision); !ok {
		t.Fatalf("expected cancel decision first, got %#v", got[0])
	}
	if _, ok := got[1].(CreateReturnHookDecision); !ok {
		t.Fatalf("expected hook decision second, got %#v", got[1])
	}
}

func TestThrottleCapNeverNegative(t *testing.T) {
	// 已排定数超过上限时名额为 0 而不是负数
	base := time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)
	ctx := throttleContext(t, scheduledReminders(10, base))

	decisions := []Decision{
		ScheduleReminderDecision{HabitID: 1, FireAt: ctx.Now, Priority: 5},
	}
	if got := Throttle(decisions, ctx); len(got) != 0 {
		t.Fatalf("expected zero decisions, got %d", len(got))
	}
}
