package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestAPI(t *testing.T) (*API, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(
		&db.User{},
		&db.Habit{},
		&db.CompletionEvent{},
		&db.Rule{},
		&db.Reminder{},
		&db.ReturnHook{},
		&db.SalvagePlan{},
		&db.UserSettings{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	n := 0
	newID := func() string {
		n++
		return fmt.Sprintf("test-handle-%d", n)
	}
	api := NewAPIWithClock(gdb, func() time.Time { return now }, newID)

	cleanup := func() {
		for _, table := range []string{"users", "habits", "completion_events", "rules", "reminders", "return_hooks", "salvage_plans", "user_settings"} {
			gdb.Exec("DELETE FROM " + table)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return api, cleanup
}

func postJSON(t *testing.T, path string, payload interface{}) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to encode payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return w, c
}

func seedHabit(t *testing.T, api *API, title string) db.Habit {
	t.Helper()
	habit := db.Habit{Title: title, Category: db.CategoryHealth, DefaultPhase: "morning", Active: true}
	if err := api.DB().Create(&habit).Error; err != nil {
		t.Fatalf("failed to seed habit: %v", err)
	}
	return habit
}

func TestCreateRuleRejectsUnknownTriggerTag(t *testing.T) {
	api, cleanup := setupTestAPI(t)
	defer cleanup()

	habit := seedHabit(t, api, "喝水")

	w, c := postJSON(t, "/api/rules", map[string]any{
		"habit_id": habit.ID,
		"trigger":  map[string]any{"type": "lunar_phase"},
		"actions":  []map[string]any{{"type": "notify", "habit_id": habit.ID, "priority": 1}},
	})
	api.CreateRule(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestCreateRuleEchoesEnvelopes(t *testing.T) {
	api, cleanup := setupTestAPI(t)
	defer cleanup()

	habit := seedHabit(t, api, "喝水")

	w, c := postJSON(t, "/api/rules", map[string]any{
		"habit_id": habit.ID,
		"trigger":  map[string]any{"type": "phase_start", "phase": "morning"},
		"conditions": []map[string]any{
			{"type": "not_completed_today", "habit_id": habit.ID},
		},
		"actions": []map[string]any{
			{"type": "notify", "habit_id": habit.ID, "template_id": "water_morning", "priority": 3},
		},
	})
	api.CreateRule(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Trigger struct {
			Type  string `json:"type"`
			Phase string `json:"phase"`
		} `json:"trigger"`
		Enabled bool `json:"enabled"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Trigger.Type != "phase_start" || response.Trigger.Phase != "morning" {
		t.Fatalf("unexpected trigger in response: %+v", response.Trigger)
	}
	if !response.Enabled {
		t.Fatalf("expected rule to default to enabled")
	}
}

func TestTransitionReminderConflictOnTerminalState(t *testing.T) {
	api, cleanup := setupTestAPI(t)
	defer cleanup()

	reminder := db.Reminder{
		DateKey:   "2025-06-10",
		FireAt:    time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
		ExpiresAt: time.Date(2025, 6, 10, 13, 0, 0, 0, time.UTC),
		Handle:    "seed-handle-1",
		State:     "completed",
	}
	if err := api.DB().Create(&reminder).Error; err != nil {
		t.Fatalf("failed to seed reminder: %v", err)
	}

	w, c := postJSON(t, "/api/reminders/"+strconv.Itoa(int(reminder.ID))+"/state", map[string]any{"state": "canceled"})
	c.Params = gin.Params{gin.Param{Key: "id", Value: strconv.Itoa(int(reminder.ID))}}
	api.TransitionReminder(c)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}
}

func TestUpdateSettingsRejectsInvalidResetHour(t *testing.T) {
	api, cleanup := setupTestAPI(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader([]byte(`{"reset_hour":25,"phase_mode":"manual","daily_cap":8,"cooldown_minutes":45}`)))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	api.UpdateSettings(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}
