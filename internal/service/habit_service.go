package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/engine"
	"gorm.io/gorm"
)

var (
	// ErrHabitNotFound 在指定习惯不存在时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitInvalidCategory 当类别不在封闭枚举内时返回
	ErrHabitInvalidCategory = errors.New("invalid habit category")
	// ErrHabitInvalidPhase 当默认阶段名非法时返回
	ErrHabitInvalidPhase = errors.New("invalid habit default phase")
)

// HabitService 负责 Habit 数据的增删改查
// 类别限定在封闭枚举内，默认阶段限定在四个阶段名内
type HabitService struct {
	db *gorm.DB
}

// HabitFilter 描述列表过滤条件
type HabitFilter struct {
	Category   string
	ActiveOnly bool
	Search     string
}

// HabitInput 定义创建/更新习惯时可配置字段
type HabitInput struct {
	Title        string
	Category     string
	DefaultPhase string
	Active       bool
}

// NewHabitService 构造 HabitService
func NewHabitService(gdb *gorm.DB) *HabitService {
	return &HabitService{db: gdb}
}

// List 返回习惯集合，支持基本筛选
func (s *HabitService) List(filter HabitFilter) ([]db.Habit, error) {
	var habits []db.Habit

	query := s.db.Model(&db.Habit{})

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", strings.TrimSpace(filter.Search))
		query = query.Where("title LIKE ?", like)
	}

	if err := query.Order("created_at DESC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	return habits, nil
}

// Get 根据 ID 获取习惯
func (s *HabitService) Get(id uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

// Create 新建习惯
func (s *HabitService) Create(input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	habit := db.Habit{
		Title:        strings.TrimSpace(input.Title),
		Category:     normalizeCategory(input.Category),
		DefaultPhase: strings.TrimSpace(input.DefaultPhase),
		Active:       input.Active,
	}

	if err := s.db.Create(&habit).Error; err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &habit, nil
}

// Update 更新习惯，标识保持不变
func (s *HabitService) Update(id uint, input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	var existing db.Habit
	if err := s.db.First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("find habit: %w", err)
	}

	existing.Title = strings.TrimSpace(input.Title)
	existing.Category = normalizeCategory(input.Category)
	existing.DefaultPhase = strings.TrimSpace(input.DefaultPhase)
	existing.Active = input.Active

	if err := s.db.Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return &existing, nil
}

// Delete 删除习惯
func (s *HabitService) Delete(id uint) error {
	if err := s.db.Delete(&db.Habit{}, id).Error; err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return nil
}

func validateHabitInput(input HabitInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("habit title is required")
	}

	category := normalizeCategory(input.Category)
	valid := false
	for _, known := range db.Categories {
		if category == known {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %s", ErrHabitInvalidCategory, input.Category)
	}

	phase := strings.TrimSpace(input.DefaultPhase)
	if phase != "" && !engine.ValidPhase(engine.PhaseName(phase)) {
		return fmt.Errorf("%w: %s", ErrHabitInvalidPhase, input.DefaultPhase)
	}

	return nil
}

func normalizeCategory(category string) string {
	category = strings.TrimSpace(strings.ToLower(category))
	if category == "" {
		return db.CategoryOther
	}
	return category
}
