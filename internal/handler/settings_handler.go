package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/service"
)

type settingsPayload struct {
	ResetHour             int     `json:"reset_hour"`
	ResetMinute           int     `json:"reset_minute"`
	DailyCap              int     `json:"daily_cap"`
	CooldownMinutes       int     `json:"cooldown_minutes"`
	PhaseMode             string  `json:"phase_mode"`
	MorningStartMinutes   *int    `json:"morning_start_minutes"`
	AfternoonStartMinutes *int    `json:"afternoon_start_minutes"`
	EveningStartMinutes   *int    `json:"evening_start_minutes"`
	NightStartMinutes     *int    `json:"night_start_minutes"`
	LocationEnabled       bool    `json:"location_enabled"`
	Latitude              float64 `json:"latitude"`
	Longitude             float64 `json:"longitude"`
}

func settingsToJSON(settings db.UserSettings) gin.H {
	return gin.H{
		"reset_hour":              settings.ResetHour,
		"reset_minute":            settings.ResetMinute,
		"daily_cap":               settings.DailyCap,
		"cooldown_minutes":        settings.CooldownMinutes,
		"phase_mode":              settings.PhaseMode,
		"morning_start_minutes":   settings.MorningStartMinutes,
		"afternoon_start_minutes": settings.AfternoonStartMinutes,
		"evening_start_minutes":   settings.EveningStartMinutes,
		"night_start_minutes":     settings.NightStartMinutes,
		"tone":                    settings.Tone,
		"location_enabled":        settings.LocationEnabled,
		"latitude":                settings.Latitude,
		"longitude":               settings.Longitude,
	}
}

// GetSettings 返回当前设置（不存在时为默认值）
func (a *API) GetSettings(c *gin.Context) {
	settings, err := a.settings.Get()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取设置失败")
		return
	}
	c.JSON(http.StatusOK, settingsToJSON(*settings))
}

// UpdateSettings 更新设置
func (a *API) UpdateSettings(c *gin.Context) {
	var payload settingsPayload
	if !bindJSON(c, &payload, "无效的设置数据") {
		return
	}

	input := service.SettingsInput{
		ResetHour:             payload.ResetHour,
		ResetMinute:           payload.ResetMinute,
		DailyCap:              payload.DailyCap,
		CooldownMinutes:       payload.CooldownMinutes,
		PhaseMode:             payload.PhaseMode,
		MorningStartMinutes:   minutesOrDefault(payload.MorningStartMinutes),
		AfternoonStartMinutes: minutesOrDefault(payload.AfternoonStartMinutes),
		EveningStartMinutes:   minutesOrDefault(payload.EveningStartMinutes),
		NightStartMinutes:     minutesOrDefault(payload.NightStartMinutes),
		LocationEnabled:       payload.LocationEnabled,
		Latitude:              payload.Latitude,
		Longitude:             payload.Longitude,
	}

	settings, err := a.settings.Update(input)
	if err != nil {
		if errors.Is(err, service.ErrSettingsInvalidReset) || errors.Is(err, service.ErrSettingsInvalidPhaseMode) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, settingsToJSON(*settings))
}

func minutesOrDefault(value *int) int {
	if value == nil {
		return -1
	}
	return *value
}
