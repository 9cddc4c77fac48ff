package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/engine"
	"github.com/habitloop/internal/service"
)

type habitPayload struct {
	Title        string `json:"title"`
	Category     string `json:"category"`
	DefaultPhase string `json:"default_phase"`
	Active       *bool  `json:"active"`
}

type completionPayload struct {
	CompletedAt    string `json:"completed_at"`
	Metadata       string `json:"metadata"`
	LateCorrection bool   `json:"late_correction"`
}

func habitToJSON(habit db.Habit) gin.H {
	return gin.H{
		"id":            habit.ID,
		"title":         habit.Title,
		"category":      habit.Category,
		"default_phase": habit.DefaultPhase,
		"active":        habit.Active,
		"created_at":    habit.CreatedAt.Format(time.RFC3339),
	}
}

// ListHabits 返回习惯列表 JSON
func (a *API) ListHabits(c *gin.Context) {
	filter := service.HabitFilter{
		Category:   c.Query("category"),
		ActiveOnly: c.Query("active") == "true",
		Search:     c.Query("search"),
	}

	habits, err := a.habits.List(filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取习惯列表失败")
		return
	}

	items := make([]gin.H, 0, len(habits))
	for _, habit := range habits {
		items = append(items, habitToJSON(habit))
	}
	c.JSON(http.StatusOK, gin.H{"habits": items})
}

// GetHabit 返回单个习惯详情
func (a *API) GetHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	habit, err := a.habits.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrHabitNotFound) {
			respondError(c, http.StatusNotFound, "习惯不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取习惯失败")
		return
	}
	c.JSON(http.StatusOK, habitToJSON(*habit))
}

// CreateHabit 新建习惯
func (a *API) CreateHabit(c *gin.Context) {
	var payload habitPayload
	if !bindJSON(c, &payload, "无效的习惯数据") {
		return
	}

	active := true
	if payload.Active != nil {
		active = *payload.Active
	}

	habit, err := a.habits.Create(service.HabitInput{
		Title:        payload.Title,
		Category:     payload.Category,
		DefaultPhase: payload.DefaultPhase,
		Active:       active,
	})
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, habitToJSON(*habit))
}

// UpdateHabit 更新习惯
func (a *API) UpdateHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload habitPayload
	if !bindJSON(c, &payload, "无效的习惯数据") {
		return
	}

	active := true
	if payload.Active != nil {
		active = *payload.Active
	}

	habit, err := a.habits.Update(id, service.HabitInput{
		Title:        payload.Title,
		Category:     payload.Category,
		DefaultPhase: payload.DefaultPhase,
		Active:       active,
	})
	if err != nil {
		if errors.Is(err, service.ErrHabitNotFound) {
			respondError(c, http.StatusNotFound, "习惯不存在")
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, habitToJSON(*habit))
}

// DeleteHabit 删除习惯
func (a *API) DeleteHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	if err := a.habits.Delete(id); err != nil {
		respondError(c, http.StatusInternalServerError, "删除习惯失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已删除"})
}

// RecordCompletion 记录一次完成
func (a *API) RecordCompletion(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload completionPayload
	if !bindJSON(c, &payload, "无效的打卡数据") {
		return
	}

	completedAt := a.now()
	if payload.CompletedAt != "" {
		parsed, err := time.Parse(time.RFC3339, payload.CompletedAt)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的完成时间")
			return
		}
		completedAt = parsed
	}

	event, err := a.completions.Record(service.CompletionInput{
		HabitID:        id,
		CompletedAt:    completedAt,
		Metadata:       payload.Metadata,
		LateCorrection: payload.LateCorrection,
	})
	if err != nil {
		if errors.Is(err, service.ErrHabitNotFound) {
			respondError(c, http.StatusNotFound, "习惯不存在")
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":           event.ID,
		"habit_id":     event.HabitID,
		"completed_at": event.CompletedAt.Format(time.RFC3339),
		"date_key":     event.DateKey,
	})
}

// ListCompletions 返回习惯在某应用日的完成记录
func (a *API) ListCompletions(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	dateKey := c.Query("date_key")
	if dateKey == "" {
		settings, err := a.settings.EngineSettings()
		if err != nil {
			respondError(c, http.StatusInternalServerError, "获取设置失败")
			return
		}
		dateKey = string(engine.DateKeyAt(a.now(), settings.ResetHour, settings.ResetMinute))
	}

	events, err := a.completions.ListByHabit(id, dateKey)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取打卡记录失败")
		return
	}

	items := make([]gin.H, 0, len(events))
	for _, event := range events {
		items = append(items, gin.H{
			"id":              event.ID,
			"habit_id":        event.HabitID,
			"completed_at":    event.CompletedAt.Format(time.RFC3339),
			"date_key":        event.DateKey,
			"late_correction": event.LateCorrection,
		})
	}
	c.JSON(http.StatusOK, gin.H{"date_key": dateKey, "completions": items})
}
