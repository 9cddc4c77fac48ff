package engine

import (
	"strings"
	"testing"
	"time"
)

func TestTriggerCodecRoundTrip(t *testing.T) {
	triggers := []Trigger{
		PhaseStartTrigger{Phase: PhaseEvening},
		MinutesIntoPhaseTrigger{Phase: PhaseMorning, Minutes: 30},
		AbsoluteTimeTrigger{Hour: 0, Minute: 5},
		AfterCompletionTrigger{HabitID: 7, OffsetMinutes: 45, SameDayOnly: true},
	}

	for _, trigger := range triggers {
		data, err := EncodeTrigger(trigger)
		if err != nil {
			t.Fatalf("encode %T: %v", trigger, err)
		}
		decoded, err := DecodeTrigger(data)
		if err != nil {
			t.Fatalf("decode %T: %v", trigger, err)
		}
		if decoded != trigger {
			t.Fatalf("round trip mismatch: %#v != %#v", decoded, trigger)
		}
	}
}

func TestDecodeTriggerRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"unknown tag":   `{"type":"lunar_phase"}`,
		"invalid phase": `{"type":"phase_start","phase":"dawn"}`,
		"invalid time":  `{"type":"absolute_time","hour":25,"minute":0}`,
	}

	for name, raw := range cases {
		if _, err := DecodeTrigger([]byte(raw)); err == nil {
			t.Fatalf("%s: expected decode error", name)
		}
	}
}

func TestConditionCodecNested(t *testing.T) {
	conditions := []Condition{
		AnyCondition{Children: []Condition{
			CompletedWithinCondition{HabitID: 1, Minutes: 120},
			NotCondition{Child: CompletedTodayCondition{HabitID: 2}},
		}},
		WithinPhaseCondition{Phase: PhaseNight},
		SleepWakeKnownCondition{},
	}

	data, err := EncodeConditions(conditions)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeConditions(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("expected 3 conditions, got %d", len(decoded))
	}

	any, ok := decoded[0].(AnyCondition)
	if !ok || len(any.Children) != 2 {
		t.Fatalf("expected any with 2 children, got %#v", decoded[0])
	}
	not, ok := any.Children[1].(NotCondition)
	if !ok {
		t.Fatalf("expected nested not, got %#v", any.Children[1])
	}
	if _, ok := not.Child.(CompletedTodayCondition); !ok {
		t.Fatalf("expected completed_today inside not, got %#v", not.Child)
	}
}

func TestDecodeConditionsRejectsMalformed(t *testing.T) {
	if _, err := DecodeConditions([]byte(`[{"type":"not","children":[]}]`)); err == nil {
		t.Fatal("expected error for not without child")
	}
	if _, err := DecodeConditions([]byte(`[{"type":"astral"}]`)); err == nil {
		t.Fatal("expected error for unknown condition tag")
	}
}

func TestActionCodecRoundTrip(t *testing.T) {
	fireAt := time.Date(2025, 1, 5, 19, 0, 0, 0, time.UTC)
	actions := []Action{
		NotifyAction{HabitID: 3, TemplateID: "supplements", Priority: 2},
		ScheduleNotifyAction{HabitID: 3, TemplateID: "wind_down", Priority: 1, FireAt: fireAt, ExpiresAt: fireAt.Add(time.Hour)},
		CancelAction{Scope: CancelByHabit, HabitID: 3},
		CreateReturnHookAction{Prompt: "昨晚睡得怎么样？"},
		TriggerSalvageAction{PlanID: "plan-1"},
	}

	data, err := EncodeActions(actions)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeActions(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(actions) {
		t.Fatalf("expected %d actions, got %d", len(actions), len(decoded))
	}

	schedule, ok := decoded[1].(ScheduleNotifyAction)
	if !ok {
		t.Fatalf("expected schedule_notify, got %#v", decoded[1])
	}
	if !schedule.FireAt.Equal(fireAt) {
		t.Fatalf("fire time lost in round trip: %v", schedule.FireAt)
	}
}

func TestDecodeActionsRejectsMalformed(t *testing.T) {
	if _, err := DecodeActions([]byte(`[{"type":"schedule_notify","priority":1}]`)); err == nil {
		t.Fatal("expected error for schedule_notify without times")
	}

	_, err := DecodeActions([]byte(`[{"type":"cancel","scope":"galaxy","priority":0}]`))
	if err == nil || !strings.Contains(err.Error(), "scope") {
		t.Fatalf("expected invalid scope error, got %v", err)
	}

	// 按习惯/规则取消时必须带上对应 id，零值会误伤无归属的提醒
	if _, err := DecodeActions([]byte(`[{"type":"cancel","scope":"habit","priority":0}]`)); err == nil {
		t.Fatal("expected error for habit scope without habit_id")
	}
	if _, err := DecodeActions([]byte(`[{"type":"cancel","scope":"rule","priority":0}]`)); err == nil {
		t.Fatal("expected error for rule scope without rule_id")
	}
}
