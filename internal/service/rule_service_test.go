package service

import (
	"errors"
	"testing"

	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/engine"
)

func TestRuleServiceRoundTrip(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewRuleService(db.DB)

	created, err := svc.Create(RuleInput{
		HabitID: 3,
		Enabled: true,
		Trigger: engine.PhaseStartTrigger{Phase: engine.PhaseEvening},
		Conditions: []engine.Condition{
			engine.CompletedWithinCondition{HabitID: 3, Minutes: 120},
		},
		Actions: []engine.Action{
			engine.NotifyAction{HabitID: 4, TemplateID: "supplements", Priority: 2},
		},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	rules, skipped, err := svc.LoadEngineRules()
	if err != nil {
		t.Fatalf("LoadEngineRules returned error: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("expected no skipped rules, got %d", skipped)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}

	rule := rules[0]
	if rule.ID != created.ID || !rule.Enabled {
		t.Fatalf("unexpected rule identity: %+v", rule)
	}
	if _, ok := rule.Trigger.(engine.PhaseStartTrigger); !ok {
		t.Fatalf("trigger lost in round trip: %#v", rule.Trigger)
	}
	if len(rule.Conditions) != 1 || len(rule.Actions) != 1 {
		t.Fatalf("payload lost in round trip: %+v", rule)
	}
}

func TestRuleServiceSkipsMalformedRows(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewRuleService(db.DB)

	if _, err := svc.Create(RuleInput{
		HabitID: 1,
		Enabled: true,
		Trigger: engine.AbsoluteTimeTrigger{Hour: 8, Minute: 0},
		Actions: []engine.Action{engine.NotifyAction{HabitID: 1, TemplateID: "morning", Priority: 1}},
	}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// 直接写入一行损坏载荷，模拟持久层的历史脏数据
	broken := db.Rule{
		HabitID:     1,
		Enabled:     true,
		TriggerJSON: `{"type":"lunar_phase"}`,
		ActionsJSON: `[{"type":"notify","priority":1}]`,
	}
	if err := db.DB.Create(&broken).Error; err != nil {
		t.Fatalf("insert broken rule: %v", err)
	}

	rules, skipped, err := svc.LoadEngineRules()
	if err != nil {
		t.Fatalf("LoadEngineRules returned error: %v", err)
	}
	if skipped != 1 {
		t.Fatalf("expected 1 skipped rule, got %d", skipped)
	}
	if len(rules) != 1 {
		t.Fatalf("expected only the valid rule, got %d", len(rules))
	}
}

func TestRuleServiceValidation(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewRuleService(db.DB)

	_, err := svc.Create(RuleInput{HabitID: 1, Enabled: true, Actions: []engine.Action{engine.NotifyAction{}}})
	if !errors.Is(err, ErrRuleInvalidPayload) {
		t.Fatalf("expected ErrRuleInvalidPayload for missing trigger, got %v", err)
	}

	_, err = svc.Create(RuleInput{HabitID: 1, Enabled: true, Trigger: engine.AbsoluteTimeTrigger{Hour: 8}})
	if !errors.Is(err, ErrRuleInvalidPayload) {
		t.Fatalf("expected ErrRuleInvalidPayload for empty actions, got %v", err)
	}
}
