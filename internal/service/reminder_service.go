package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/engine"
	"gorm.io/gorm"
)

var (
	// ErrReminderNotFound 在指定提醒不存在时返回
	ErrReminderNotFound = errors.New("reminder not found")
	// ErrReminderInvalidTransition 当状态转移违反单调性时返回
	ErrReminderInvalidTransition = errors.New("invalid reminder state transition")
	// ErrReminderInvalidWindow 当过期时刻早于触发时刻时返回
	ErrReminderInvalidWindow = errors.New("reminder expiry must not precede fire time")
)

// ReminderService 负责提醒的持久化与状态流转
// 状态单调：离开 scheduled 后不再回来，小睡产生新实体
type ReminderService struct {
	db    *gorm.DB
	newID func() string
}

// ReminderFilter 描述列表过滤条件
type ReminderFilter struct {
	DateKey string
	State   string
	HabitID uint
}

// NewReminderService 构造 ReminderService，newID 提供外部可见的通知句柄。
func NewReminderService(gdb *gorm.DB, newID func() string) *ReminderService {
	return &ReminderService{db: gdb, newID: newID}
}

// List 返回提醒集合，支持基本筛选
func (s *ReminderService) List(filter ReminderFilter) ([]db.Reminder, error) {
	var reminders []db.Reminder

	query := s.db.Model(&db.Reminder{})
	if filter.DateKey != "" {
		query = query.Where("date_key = ?", filter.DateKey)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.HabitID != 0 {
		query = query.Where("habit_id = ?", filter.HabitID)
	}

	if err := query.Order("fire_at ASC").Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

// Get 根据 ID 获取提醒
func (s *ReminderService) Get(id uint) (*db.Reminder, error) {
	var reminder db.Reminder
	if err := s.db.First(&reminder, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return &reminder, nil
}

// Schedule 依据排定决策创建一条新提醒。
func (s *ReminderService) Schedule(decision engine.ScheduleReminderDecision) (*db.Reminder, error) {
	if decision.ExpiresAt.Before(decision.FireAt) {
		return nil, ErrReminderInvalidWindow
	}

	reminder := db.Reminder{
		DateKey:    string(decision.DateKey),
		FireAt:     decision.FireAt,
		ExpiresAt:  decision.ExpiresAt,
		Handle:     s.newID(),
		State:      string(engine.ReminderScheduled),
		Priority:   decision.Priority,
		TemplateID: decision.TemplateID,
	}
	if decision.HabitID != 0 {
		habitID := decision.HabitID
		reminder.HabitID = &habitID
	}
	if decision.RuleID != 0 {
		ruleID := decision.RuleID
		reminder.RuleID = &ruleID
	}

	if err := s.db.Create(&reminder).Error; err != nil {
		return nil, fmt.Errorf("schedule reminder: %w", err)
	}
	return &reminder, nil
}

// 允许的状态转移表。scheduled 是唯一的非终态。
var reminderTransitions = map[string][]string{
	string(engine.ReminderScheduled): {
		string(engine.ReminderFired),
		string(engine.ReminderCanceled),
		string(engine.ReminderExpired),
		string(engine.ReminderCompleted),
		string(engine.ReminderSkipped),
		string(engine.ReminderSnoozed),
	},
}

// Transition 执行一次单调状态转移。
func (s *ReminderService) Transition(id uint, next string) (*db.Reminder, error) {
	reminder, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, candidate := range reminderTransitions[reminder.State] {
		if candidate == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrReminderInvalidTransition, reminder.State, next)
	}

	reminder.State = next
	if err := s.db.Save(reminder).Error; err != nil {
		return nil, fmt.Errorf("transition reminder: %w", err)
	}
	return reminder, nil
}

// Snooze 把提醒标记为 snoozed 并以新实体重新排定，绝不复活原实体。
func (s *ReminderService) Snooze(id uint, delay time.Duration) (*db.Reminder, error) {
	original, err := s.Transition(id, string(engine.ReminderSnoozed))
	if err != nil {
		return nil, err
	}

	fireAt := original.FireAt.Add(delay)
	expiresAt := original.ExpiresAt.Add(delay)

	replacement := db.Reminder{
		HabitID:    original.HabitID,
		RuleID:     original.RuleID,
		DateKey:    original.DateKey,
		FireAt:     fireAt,
		ExpiresAt:  expiresAt,
		Handle:     s.newID(),
		State:      string(engine.ReminderScheduled),
		Priority:   original.Priority,
		TemplateID: original.TemplateID,
	}

	if err := s.db.Create(&replacement).Error; err != nil {
		return nil, fmt.Errorf("snooze reminder: %w", err)
	}
	return &replacement, nil
}

// EngineReminders 把某应用日的提醒行映射为引擎快照值。
func (s *ReminderService) EngineReminders(dateKey string) ([]engine.Reminder, error) {
	rows, err := s.List(ReminderFilter{DateKey: dateKey})
	if err != nil {
		return nil, err
	}

	reminders := make([]engine.Reminder, 0, len(rows))
	for _, row := range rows {
		reminder := engine.Reminder{
			ID:         row.ID,
			DateKey:    engine.DateKey(row.DateKey),
			FireAt:     row.FireAt,
			ExpiresAt:  row.ExpiresAt,
			Handle:     row.Handle,
			State:      engine.ReminderState(row.State),
			Priority:   row.Priority,
			TemplateID: row.TemplateID,
		}
		if row.HabitID != nil {
			reminder.HabitID = *row.HabitID
		}
		if row.RuleID != nil {
			reminder.RuleID = *row.RuleID
		}
		reminders = append(reminders, reminder)
	}
	return reminders, nil
}
