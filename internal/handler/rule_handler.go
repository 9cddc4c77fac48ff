package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/engine"
	"github.com/habitloop/internal/service"
)

// 规则的触发器/条件/动作以 tag+payload JSON 原样进出 API，
// 入库前经引擎编解码器校验
type rulePayload struct {
	HabitID    uint            `json:"habit_id"`
	Enabled    *bool           `json:"enabled"`
	Trigger    json.RawMessage `json:"trigger"`
	Conditions json.RawMessage `json:"conditions"`
	Actions    json.RawMessage `json:"actions"`
}

func ruleToJSON(rule db.Rule) gin.H {
	return gin.H{
		"id":         rule.ID,
		"habit_id":   rule.HabitID,
		"enabled":    rule.Enabled,
		"trigger":    json.RawMessage(rule.TriggerJSON),
		"conditions": json.RawMessage(conditionsOrEmpty(rule.ConditionsJSON)),
		"actions":    json.RawMessage(rule.ActionsJSON),
	}
}

func conditionsOrEmpty(raw string) string {
	if raw == "" {
		return "[]"
	}
	return raw
}

func (a *API) ruleInputFromPayload(payload rulePayload) (service.RuleInput, error) {
	input := service.RuleInput{HabitID: payload.HabitID, Enabled: true}
	if payload.Enabled != nil {
		input.Enabled = *payload.Enabled
	}

	if len(payload.Trigger) == 0 {
		return input, errors.New("trigger is required")
	}
	trigger, err := engine.DecodeTrigger(payload.Trigger)
	if err != nil {
		return input, err
	}
	input.Trigger = trigger

	if len(payload.Conditions) > 0 {
		conditions, err := engine.DecodeConditions(payload.Conditions)
		if err != nil {
			return input, err
		}
		input.Conditions = conditions
	}

	if len(payload.Actions) == 0 {
		return input, errors.New("actions are required")
	}
	actions, err := engine.DecodeActions(payload.Actions)
	if err != nil {
		return input, err
	}
	input.Actions = actions

	return input, nil
}

// ListRules 返回规则列表
func (a *API) ListRules(c *gin.Context) {
	rules, err := a.rules.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取规则列表失败")
		return
	}

	items := make([]gin.H, 0, len(rules))
	for _, rule := range rules {
		items = append(items, ruleToJSON(rule))
	}
	c.JSON(http.StatusOK, gin.H{"rules": items})
}

// GetRule 返回单条规则
func (a *API) GetRule(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的规则ID")
		return
	}

	rule, err := a.rules.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrRuleNotFound) {
			respondError(c, http.StatusNotFound, "规则不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取规则失败")
		return
	}
	c.JSON(http.StatusOK, ruleToJSON(*rule))
}

// CreateRule 新建规则
func (a *API) CreateRule(c *gin.Context) {
	var payload rulePayload
	if !bindJSON(c, &payload, "无效的规则数据") {
		return
	}

	input, err := a.ruleInputFromPayload(payload)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := a.rules.Create(input)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, ruleToJSON(*rule))
}

// UpdateRule 更新规则
func (a *API) UpdateRule(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的规则ID")
		return
	}

	var payload rulePayload
	if !bindJSON(c, &payload, "无效的规则数据") {
		return
	}

	input, err := a.ruleInputFromPayload(payload)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := a.rules.Update(id, input)
	if err != nil {
		if errors.Is(err, service.ErrRuleNotFound) {
			respondError(c, http.StatusNotFound, "规则不存在")
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, ruleToJSON(*rule))
}

// DeleteRule 删除规则
func (a *API) DeleteRule(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的规则ID")
		return
	}

	if err := a.rules.Delete(id); err != nil {
		respondError(c, http.StatusInternalServerError, "删除规则失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已删除"})
}
