package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/engine"
	"gorm.io/gorm"
)

// ErrCompletionNotFound 在指定完成记录不存在时返回
var ErrCompletionNotFound = errors.New("completion not found")

// CompletionService 负责完成事件的记录与查询
// 日期键一律由引擎根据时间戳和当时的设置计算
type CompletionService struct {
	db       *gorm.DB
	settings *SettingsService
}

// CompletionInput 定义记录完成事件时的输入对象
type CompletionInput struct {
	HabitID        uint
	CompletedAt    time.Time
	Metadata       string
	LateCorrection bool
}

// NewCompletionService 构造 CompletionService
func NewCompletionService(gdb *gorm.DB, settings *SettingsService) *CompletionService {
	return &CompletionService{db: gdb, settings: settings}
}

// Record 记录一次完成。每次用户动作恰好创建一条事件，创建后不可变。
func (s *CompletionService) Record(input CompletionInput) (*db.CompletionEvent, error) {
	if input.HabitID == 0 {
		return nil, fmt.Errorf("habit id is required")
	}

	var habit db.Habit
	if err := s.db.First(&habit, input.HabitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("find habit: %w", err)
	}

	settings, err := s.settings.EngineSettings()
	if err != nil {
		return nil, err
	}

	event := db.CompletionEvent{
		HabitID:        input.HabitID,
		CompletedAt:    input.CompletedAt,
		DateKey:        string(engine.DateKeyAt(input.CompletedAt, settings.ResetHour, settings.ResetMinute)),
		Metadata:       strings.TrimSpace(input.Metadata),
		LateCorrection: input.LateCorrection,
	}

	if err := s.db.Create(&event).Error; err != nil {
		return nil, fmt.Errorf("record completion: %w", err)
	}
	return &event, nil
}

// ListByDateKey 返回某个应用日的全部完成事件
func (s *CompletionService) ListByDateKey(dateKey string) ([]db.CompletionEvent, error) {
	var events []db.CompletionEvent
	if err := s.db.Where("date_key = ?", dateKey).
		Order("completed_at ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return events, nil
}

// ListByHabit 返回习惯在指定应用日的完成事件
func (s *CompletionService) ListByHabit(habitID uint, dateKey string) ([]db.CompletionEvent, error) {
	var events []db.CompletionEvent
	if err := s.db.Where("habit_id = ? AND date_key = ?", habitID, dateKey).
		Order("completed_at ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list habit completions: %w", err)
	}
	return events, nil
}

// Delete 删除指定完成记录
func (s *CompletionService) Delete(id uint) error {
	result := s.db.Delete(&db.CompletionEvent{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete completion: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCompletionNotFound
	}
	return nil
}
