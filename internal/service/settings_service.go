package service

import (
	"errors"
	"fmt"

	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/engine"
	"gorm.io/gorm"
)

var (
	// ErrSettingsInvalidReset 当重置时刻超出合法范围时返回
	ErrSettingsInvalidReset = errors.New("invalid reset time")
	// ErrSettingsInvalidPhaseMode 当阶段模式不在封闭集合内时返回
	ErrSettingsInvalidPhaseMode = errors.New("invalid phase mode")
	// ErrSettingsInvalidPhaseOrder 当手动阶段起点不严格递增时返回
	ErrSettingsInvalidPhaseOrder = errors.New("phase starts must be strictly increasing")
)

// SettingsService 提供用户设置的读取与更新能力。
// 设置是单行记录，不存在时按产品默认值返回。
type SettingsService struct {
	db *gorm.DB
}

// SettingsInput 用于更新用户设置。
type SettingsInput struct {
	ResetHour             int
	ResetMinute           int
	DailyCap              int
	CooldownMinutes       int
	PhaseMode             string
	MorningStartMinutes   int
	AfternoonStartMinutes int
	EveningStartMinutes   int
	NightStartMinutes     int
	LocationEnabled       bool
	Latitude              float64
	Longitude             float64
}

// NewSettingsService 构造 SettingsService。
func NewSettingsService(gdb *gorm.DB) *SettingsService {
	return &SettingsService{db: gdb}
}

// Get 返回当前设置，不存在时返回带默认值的未持久化行。
func (s *SettingsService) Get() (*db.UserSettings, error) {
	var settings db.UserSettings
	err := s.db.Order("id ASC").First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	defaults := engine.DefaultSettings()
	return &db.UserSettings{
		ResetHour:             defaults.ResetHour,
		ResetMinute:           defaults.ResetMinute,
		DailyCap:              defaults.DailyCap,
		CooldownMinutes:       defaults.CooldownMinutes,
		PhaseMode:             defaults.PhaseMode,
		MorningStartMinutes:   defaults.MorningStartMinutes,
		AfternoonStartMinutes: defaults.AfternoonStartMinutes,
		EveningStartMinutes:   defaults.EveningStartMinutes,
		NightStartMinutes:     defaults.NightStartMinutes,
		Tone:                  defaults.Tone,
	}, nil
}

// Update 校验并保存设置，单行之外不会创建第二行。
func (s *SettingsService) Update(input SettingsInput) (*db.UserSettings, error) {
	if input.ResetHour < 0 || input.ResetHour > 23 || input.ResetMinute < 0 || input.ResetMinute > 59 {
		return nil, fmt.Errorf("%w: %02d:%02d", ErrSettingsInvalidReset, input.ResetHour, input.ResetMinute)
	}
	if input.PhaseMode != engine.PhaseModeManual && input.PhaseMode != engine.PhaseModeAutoSolar {
		return nil, fmt.Errorf("%w: %s", ErrSettingsInvalidPhaseMode, input.PhaseMode)
	}
	if input.DailyCap < 0 {
		return nil, fmt.Errorf("daily cap must not be negative")
	}
	if input.CooldownMinutes < 0 {
		return nil, fmt.Errorf("cooldown minutes must not be negative")
	}
	// 倒序的起点会让阶段区间倒置或重叠，入库前必须拒绝
	if !engine.PhaseStartsAscending(input.MorningStartMinutes, input.AfternoonStartMinutes, input.EveningStartMinutes, input.NightStartMinutes) {
		return nil, fmt.Errorf("%w: %d/%d/%d/%d",
			ErrSettingsInvalidPhaseOrder,
			input.MorningStartMinutes, input.AfternoonStartMinutes, input.EveningStartMinutes, input.NightStartMinutes)
	}

	var settings db.UserSettings
	err := s.db.Order("id ASC").First(&settings).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	settings.ResetHour = input.ResetHour
	settings.ResetMinute = input.ResetMinute
	settings.DailyCap = input.DailyCap
	settings.CooldownMinutes = input.CooldownMinutes
	settings.PhaseMode = input.PhaseMode
	settings.MorningStartMinutes = input.MorningStartMinutes
	settings.AfternoonStartMinutes = input.AfternoonStartMinutes
	settings.EveningStartMinutes = input.EveningStartMinutes
	settings.NightStartMinutes = input.NightStartMinutes
	settings.LocationEnabled = input.LocationEnabled
	settings.Latitude = input.Latitude
	settings.Longitude = input.Longitude
	// 语气目前只有温和教练一种
	settings.Tone = engine.ToneGentleCoach

	if err := s.db.Save(&settings).Error; err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return &settings, nil
}

// EngineSettings 把持久化行转换为引擎消费的设置快照。
func (s *SettingsService) EngineSettings() (engine.Settings, error) {
	row, err := s.Get()
	if err != nil {
		return engine.Settings{}, err
	}
	return engine.Settings{
		ResetHour:             row.ResetHour,
		ResetMinute:           row.ResetMinute,
		DailyCap:              row.DailyCap,
		CooldownMinutes:       row.CooldownMinutes,
		PhaseMode:             row.PhaseMode,
		MorningStartMinutes:   row.MorningStartMinutes,
		AfternoonStartMinutes: row.AfternoonStartMinutes,
		EveningStartMinutes:   row.EveningStartMinutes,
		NightStartMinutes:     row.NightStartMinutes,
		Tone:                  row.Tone,
		LocationEnabled:       row.LocationEnabled,
	}, nil
}

// EngineLocation 返回设置中的坐标，定位未启用时返回 nil。
func (s *SettingsService) EngineLocation() (*engine.Location, error) {
	row, err := s.Get()
	if err != nil {
		return nil, err
	}
	if !row.LocationEnabled {
		return nil, nil
	}
	return &engine.Location{Latitude: row.Latitude, Longitude: row.Longitude}, nil
}
