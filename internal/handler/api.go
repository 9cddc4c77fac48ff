package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/habitloop/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db          *gorm.DB
	habits      *service.HabitService
	completions *service.CompletionService
	rules       *service.RuleService
	reminders   *service.ReminderService
	settings    *service.SettingsService
	evaluation  *service.EvaluationService
	now         func() time.Time
}

// NewAPI constructs a handler set with shared services and a real clock.
func NewAPI(db *gorm.DB) *API {
	return NewAPIWithClock(db, time.Now, uuid.NewString)
}

// NewAPIWithClock allows tests to inject a deterministic clock and id source.
func NewAPIWithClock(db *gorm.DB, now func() time.Time, newID func() string) *API {
	settings := service.NewSettingsService(db)
	rules := service.NewRuleService(db)
	completions := service.NewCompletionService(db, settings)
	reminders := service.NewReminderService(db, newID)

	return &API{
		db:          db,
		habits:      service.NewHabitService(db),
		completions: completions,
		rules:       rules,
		reminders:   reminders,
		settings:    settings,
		evaluation:  service.NewEvaluationService(db, settings, rules, reminders, completions, now, newID),
		now:         now,
	}
}

// DB exposes the underlying gorm instance for legacy paths.
func (a *API) DB() *gorm.DB {
	return a.db
}
