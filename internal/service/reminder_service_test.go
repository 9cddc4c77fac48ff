package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/engine"
)

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func TestReminderScheduleFromDecision(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewReminderService(db.DB, sequentialIDs("handle"))

	fireAt := time.Date(2025, 1, 5, 18, 0, 0, 0, time.UTC)
	reminder, err := svc.Schedule(engine.ScheduleReminderDecision{
		HabitID: 3, RuleID: 7, DateKey: "2025-01-05",
		FireAt: fireAt, ExpiresAt: fireAt.Add(time.Hour),
		Priority: 2, TemplateID: "supplements",
	})
	if err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	if reminder.State != "scheduled" || reminder.Handle != "handle-1" {
		t.Fatalf("unexpected reminder: %+v", reminder)
	}
	if reminder.HabitID == nil || *reminder.HabitID != 3 {
		t.Fatalf("habit reference lost: %+v", reminder.HabitID)
	}

	// 过期早于触发的提醒不允许创建
	_, err = svc.Schedule(engine.ScheduleReminderDecision{
		DateKey: "2025-01-05", FireAt: fireAt, ExpiresAt: fireAt.Add(-time.Minute),
	})
	if !errors.Is(err, ErrReminderInvalidWindow) {
		t.Fatalf("expected ErrReminderInvalidWindow, got %v", err)
	}
}

func TestReminderTransitionsAreMonotonic(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewReminderService(db.DB, sequentialIDs("handle"))
	fireAt := time.Date(2025, 1, 5, 18, 0, 0, 0, time.UTC)

	reminder, err := svc.Schedule(engine.ScheduleReminderDecision{
		DateKey: "2025-01-05", FireAt: fireAt, ExpiresAt: fireAt.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	if _, err := svc.Transition(reminder.ID, "fired"); err != nil {
		t.Fatalf("scheduled -> fired must be allowed: %v", err)
	}

	// 终态之后不得回到 scheduled，也不得继续流转
	if _, err := svc.Transition(reminder.ID, "scheduled"); !errors.Is(err, ErrReminderInvalidTransition) {
		t.Fatalf("expected ErrReminderInvalidTransition, got %v", err)
	}
	if _, err := svc.Transition(reminder.ID, "canceled"); !errors.Is(err, ErrReminderInvalidTransition) {
		t.Fatalf("expected ErrReminderInvalidTransition, got %v", err)
	}
}

func TestReminderSnoozeCreatesNewEntity(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewReminderService(db.DB, sequentialIDs("handle"))
	fireAt := time.Date(2025, 1, 5, 18, 0, 0, 0, time.UTC)

	original, err := svc.Schedule(engine.ScheduleReminderDecision{
		HabitID: 3, DateKey: "2025-01-05",
		FireAt: fireAt, ExpiresAt: fireAt.Add(time.Hour),
		Priority: 2, TemplateID: "supplements",
	})
	if err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	replacement, err := svc.Snooze(original.ID, 15*time.Minute)
	if err != nil {
		t.Fatalf("Snooze returned error: %v", err)
	}

	if replacement.ID == original.ID {
		t.Fatal("snooze must create a new entity")
	}
	if replacement.Handle == original.Handle {
		t.Fatal("snoozed replacement must get a fresh handle")
	}
	if !replacement.FireAt.Equal(fireAt.Add(15 * time.Minute)) {
		t.Fatalf("unexpected fire time: %v", replacement.FireAt)
	}
	if replacement.State != "scheduled" {
		t.Fatalf("replacement must start scheduled, got %s", replacement.State)
	}

	reloaded, err := svc.Get(original.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if reloaded.State != "snoozed" {
		t.Fatalf("original must be snoozed, got %s", reloaded.State)
	}
}

func TestReminderEngineMapping(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewReminderService(db.DB, sequentialIDs("handle"))
	fireAt := time.Date(2025, 1, 5, 18, 0, 0, 0, time.UTC)

	if _, err := svc.Schedule(engine.ScheduleReminderDecision{
		HabitID: 3, RuleID: 7, DateKey: "2025-01-05",
		FireAt: fireAt, ExpiresAt: fireAt.Add(time.Hour), Priority: 2,
	}); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	reminders, err := svc.EngineReminders("2025-01-05")
	if err != nil {
		t.Fatalf("EngineReminders returned error: %v", err)
	}
	if len(reminders) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(reminders))
	}
	if reminders[0].HabitID != 3 || reminders[0].RuleID != 7 || reminders[0].State != engine.ReminderScheduled {
		t.Fatalf("mapping mismatch: %+v", reminders[0])
	}
}
