package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/engine"
	"gorm.io/gorm"
)

// ErrEvaluationEventNotFound 在指定的触发事件不存在时返回
var ErrEvaluationEventNotFound = errors.New("triggering completion not found")

// EvaluationService 是一次求值的组合根：装载输入、构建引擎快照、
// 运行求值与节流、落库决策结果。
// 时钟与 id 生成器由构造方注入，引擎本身从不读系统时钟。
type EvaluationService struct {
	db          *gorm.DB
	settings    *SettingsService
	rules       *RuleService
	reminders   *ReminderService
	completions *CompletionService
	now         func() time.Time
	newPlanID   func() string
}

// EvaluationRequest 描述一次求值请求。
// At 为空时使用注入时钟的"现在"；EventID 指向触发本次求值的完成事件。
type EvaluationRequest struct {
	At      *time.Time
	EventID uint
}

// EvaluationSummary 汇总一次求值落库后的结果。
type EvaluationSummary struct {
	DateKey            string
	EvaluatedRules     int
	SkippedRules       int
	ScheduledReminders []db.Reminder
	CanceledReminders  []uint
	CreatedHooks       []db.ReturnHook
	CreatedPlans       []db.SalvagePlan
	DroppedSchedules   int
}

// NewEvaluationService 构造 EvaluationService。
func NewEvaluationService(
	gdb *gorm.DB,
	settings *SettingsService,
	rules *RuleService,
	reminders *ReminderService,
	completions *CompletionService,
	now func() time.Time,
	newPlanID func() string,
) *EvaluationService {
	return &EvaluationService{
		db:          gdb,
		settings:    settings,
		rules:       rules,
		reminders:   reminders,
		completions: completions,
		now:         now,
		newPlanID:   newPlanID,
	}
}

// Run 执行一次完整的求值流程并持久化结果。
func (s *EvaluationService) Run(request EvaluationRequest) (*EvaluationSummary, error) {
	now := s.now()
	if request.At != nil {
		now = *request.At
	}

	settings, err := s.settings.EngineSettings()
	if err != nil {
		return nil, err
	}
	location, err := s.settings.EngineLocation()
	if err != nil {
		return nil, err
	}

	dateKey := string(engine.DateKeyAt(now, settings.ResetHour, settings.ResetMinute))

	completions, err := s.engineCompletions(dateKey)
	if err != nil {
		return nil, err
	}
	reminders, err := s.reminders.EngineReminders(dateKey)
	if err != nil {
		return nil, err
	}
	hooks, err := s.engineHooks()
	if err != nil {
		return nil, err
	}
	rules, skipped, err := s.rules.LoadEngineRules()
	if err != nil {
		return nil, err
	}

	var event *engine.Completion
	if request.EventID != 0 {
		event, err = s.eventByID(request.EventID, settings)
		if err != nil {
			return nil, err
		}
	}

	ctx := engine.BuildContext(now, settings, location, completions, reminders, hooks)
	raw := engine.Evaluate(rules, ctx, event)
	final := engine.Throttle(raw, ctx)

	summary := &EvaluationSummary{
		DateKey:        dateKey,
		EvaluatedRules: len(rules),
		SkippedRules:   skipped,
	}
	summary.DroppedSchedules = countSchedules(raw) - countSchedules(final)

	if err := s.apply(final, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// apply 把最终决策落库。调用方负责把句柄交给通知子系统，这里不涉及投递。
func (s *EvaluationService) apply(decisions []engine.Decision, summary *EvaluationSummary) error {
	for _, decision := range decisions {
		switch d := decision.(type) {
		case engine.ScheduleReminderDecision:
			reminder, err := s.reminders.Schedule(d)
			if err != nil {
				return err
			}
			summary.ScheduledReminders = append(summary.ScheduledReminders, *reminder)
		case engine.CancelReminderDecision:
			if _, err := s.reminders.Transition(d.ReminderID, string(engine.ReminderCanceled)); err != nil {
				return err
			}
			summary.CanceledReminders = append(summary.CanceledReminders, d.ReminderID)
		case engine.CreateReturnHookDecision:
			hook := db.ReturnHook{Prompt: d.Prompt, DateKey: string(d.DateKey)}
			if err := s.db.Create(&hook).Error; err != nil {
				return fmt.Errorf("create return hook: %w", err)
			}
			summary.CreatedHooks = append(summary.CreatedHooks, hook)
		case engine.CreateSalvagePlanDecision:
			planID := d.PlanID
			if planID == "" {
				planID = s.newPlanID()
			}
			items, err := json.Marshal(d.Items)
			if err != nil {
				return fmt.Errorf("encode salvage items: %w", err)
			}
			plan := db.SalvagePlan{
				PlanID:    planID,
				DateKey:   string(d.DateKey),
				Title:     d.Title,
				Message:   d.Message,
				ItemsJSON: string(items),
			}
			if err := s.db.Create(&plan).Error; err != nil {
				return fmt.Errorf("create salvage plan: %w", err)
			}
			summary.CreatedPlans = append(summary.CreatedPlans, plan)
		}
	}
	return nil
}

func (s *EvaluationService) engineCompletions(dateKey string) ([]engine.Completion, error) {
	rows, err := s.completions.ListByDateKey(dateKey)
	if err != nil {
		return nil, err
	}

	completions := make([]engine.Completion, 0, len(rows))
	for _, row := range rows {
		completions = append(completions, engine.Completion{
			ID:             row.ID,
			HabitID:        row.HabitID,
			At:             row.CompletedAt,
			DateKey:        engine.DateKey(row.DateKey),
			LateCorrection: row.LateCorrection,
		})
	}
	return completions, nil
}

func (s *EvaluationService) engineHooks() ([]engine.ReturnHook, error) {
	var rows []db.ReturnHook
	if err := s.db.Where("responded = ?", false).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list return hooks: %w", err)
	}

	hooks := make([]engine.ReturnHook, 0, len(rows))
	for _, row := range rows {
		hooks = append(hooks, engine.ReturnHook{
			ID:        row.ID,
			Prompt:    row.Prompt,
			DateKey:   engine.DateKey(row.DateKey),
			Responded: row.Responded,
		})
	}
	return hooks, nil
}

func (s *EvaluationService) eventByID(id uint, settings engine.Settings) (*engine.Completion, error) {
	var row db.CompletionEvent
	if err := s.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEvaluationEventNotFound
		}
		return nil, fmt.Errorf("load triggering completion: %w", err)
	}

	return &engine.Completion{
		ID:             row.ID,
		HabitID:        row.HabitID,
		At:             row.CompletedAt,
		DateKey:        engine.DateKey(row.DateKey),
		LateCorrection: row.LateCorrection,
	}, nil
}

func countSchedules(decisions []engine.Decision) int {
	count := 0
	for _, decision := range decisions {
		if _, ok := decision.(engine.ScheduleReminderDecision); ok {
			count++
		}
	}
	return count
}
