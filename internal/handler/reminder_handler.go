package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/service"
)

type reminderStatePayload struct {
	State string `json:"state"`
}

type snoozePayload struct {
	DelayMinutes int `json:"delay_minutes"`
}

func reminderToJSON(reminder db.Reminder) gin.H {
	item := gin.H{
		"id":          reminder.ID,
		"date_key":    reminder.DateKey,
		"fire_at":     reminder.FireAt.Format(time.RFC3339),
		"expires_at":  reminder.ExpiresAt.Format(time.RFC3339),
		"handle":      reminder.Handle,
		"state":       reminder.State,
		"priority":    reminder.Priority,
		"template_id": reminder.TemplateID,
	}
	if reminder.HabitID != nil {
		item["habit_id"] = *reminder.HabitID
	}
	if reminder.RuleID != nil {
		item["rule_id"] = *reminder.RuleID
	}
	return item
}

// ListReminders 返回提醒列表，支持按应用日/状态/习惯筛选
func (a *API) ListReminders(c *gin.Context) {
	var habitID uint
	if raw := c.Query("habit_id"); raw != "" {
		parsed, err := parseUintQuery(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的习惯ID")
			return
		}
		habitID = parsed
	}

	reminders, err := a.reminders.List(service.ReminderFilter{
		DateKey: c.Query("date_key"),
		State:   c.Query("state"),
		HabitID: habitID,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取提醒列表失败")
		return
	}

	items := make([]gin.H, 0, len(reminders))
	for _, reminder := range reminders {
		items = append(items, reminderToJSON(reminder))
	}
	c.JSON(http.StatusOK, gin.H{"reminders": items})
}

// TransitionReminder 执行一次状态转移
func (a *API) TransitionReminder(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的提醒ID")
		return
	}

	var payload reminderStatePayload
	if !bindJSON(c, &payload, "无效的状态数据") {
		return
	}

	reminder, err := a.reminders.Transition(id, payload.State)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReminderNotFound):
			respondError(c, http.StatusNotFound, "提醒不存在")
		case errors.Is(err, service.ErrReminderInvalidTransition):
			respondError(c, http.StatusConflict, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "状态更新失败")
		}
		return
	}
	c.JSON(http.StatusOK, reminderToJSON(*reminder))
}

// SnoozeReminder 小睡：原提醒进入 snoozed，创建新的排定实体
func (a *API) SnoozeReminder(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的提醒ID")
		return
	}

	payload := snoozePayload{DelayMinutes: 10}
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &payload, "无效的小睡数据") {
			return
		}
	}
	if payload.DelayMinutes <= 0 {
		respondError(c, http.StatusBadRequest, "小睡时长必须为正")
		return
	}

	replacement, err := a.reminders.Snooze(id, time.Duration(payload.DelayMinutes)*time.Minute)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReminderNotFound):
			respondError(c, http.StatusNotFound, "提醒不存在")
		case errors.Is(err, service.ErrReminderInvalidTransition):
			respondError(c, http.StatusConflict, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "小睡失败")
		}
		return
	}
	c.JSON(http.StatusCreated, reminderToJSON(*replacement))
}
