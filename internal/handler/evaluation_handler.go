package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/service"
)

type evaluationPayload struct {
	// At 允许调用方指定求值时刻（RFC3339），缺省使用服务端时钟；
	// 测试和重放依赖这一点
	At      string `json:"at"`
	EventID uint   `json:"event_id"`
}

// RunEvaluation 执行一次求值流程并返回落库结果
func (a *API) RunEvaluation(c *gin.Context) {
	payload := evaluationPayload{}
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &payload, "无效的求值请求") {
			return
		}
	}

	request := service.EvaluationRequest{EventID: payload.EventID}
	if payload.At != "" {
		at, err := time.Parse(time.RFC3339, payload.At)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的求值时刻")
			return
		}
		request.At = &at
	}

	summary, err := a.evaluation.Run(request)
	if err != nil {
		if errors.Is(err, service.ErrEvaluationEventNotFound) {
			respondError(c, http.StatusNotFound, "触发事件不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "求值失败")
		return
	}

	scheduled := make([]gin.H, 0, len(summary.ScheduledReminders))
	for _, reminder := range summary.ScheduledReminders {
		scheduled = append(scheduled, reminderToJSON(reminder))
	}

	hooks := make([]gin.H, 0, len(summary.CreatedHooks))
	for _, hook := range summary.CreatedHooks {
		hooks = append(hooks, gin.H{"id": hook.ID, "prompt": hook.Prompt, "date_key": hook.DateKey})
	}

	plans := make([]gin.H, 0, len(summary.CreatedPlans))
	for _, plan := range summary.CreatedPlans {
		plans = append(plans, salvagePlanToJSON(plan))
	}

	c.JSON(http.StatusOK, gin.H{
		"date_key":            summary.DateKey,
		"evaluated_rules":     summary.EvaluatedRules,
		"skipped_rules":       summary.SkippedRules,
		"scheduled_reminders": scheduled,
		"canceled_reminders":  summary.CanceledReminders,
		"created_hooks":       hooks,
		"created_plans":       plans,
		"dropped_schedules":   summary.DroppedSchedules,
	})
}
