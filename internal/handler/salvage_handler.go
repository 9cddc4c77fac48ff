package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/service"
	"gorm.io/gorm"
)

func salvagePlanToJSON(plan db.SalvagePlan) gin.H {
	items := plan.ItemsJSON
	if items == "" {
		items = "[]"
	}
	return gin.H{
		"id":       plan.ID,
		"plan_id":  plan.PlanID,
		"date_key": plan.DateKey,
		"title":    plan.Title,
		"message":  plan.Message,
		"items":    json.RawMessage(items),
		"accepted": plan.Accepted,
	}
}

// ListSalvagePlans 返回补救计划，支持按应用日筛选；
// rendered=true 时额外返回渲染后的教练消息 HTML
func (a *API) ListSalvagePlans(c *gin.Context) {
	query := a.db.Order("created_at desc")
	if dateKey := c.Query("date_key"); dateKey != "" {
		query = query.Where("date_key = ?", dateKey)
	}

	var plans []db.SalvagePlan
	if err := query.Find(&plans).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "获取补救计划失败")
		return
	}

	rendered := c.Query("rendered") == "true"
	items := make([]gin.H, 0, len(plans))
	for _, plan := range plans {
		item := salvagePlanToJSON(plan)
		if rendered {
			message, err := service.RenderCoachMessage(plan.Message)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "渲染教练消息失败")
				return
			}
			item["rendered_message"] = message
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"plans": items})
}

// AcceptSalvagePlan 标记补救计划已被采纳
func (a *API) AcceptSalvagePlan(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的计划ID")
		return
	}

	var plan db.SalvagePlan
	if err := a.db.First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "补救计划不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取补救计划失败")
		return
	}

	if !plan.Accepted {
		plan.Accepted = true
		if err := a.db.Save(&plan).Error; err != nil {
			respondError(c, http.StatusInternalServerError, "更新补救计划失败")
			return
		}
	}
	c.JSON(http.StatusOK, salvagePlanToJSON(plan))
}

// ListReturnHooks 返回回访提示，默认只含未响应的
func (a *API) ListReturnHooks(c *gin.Context) {
	query := a.db.Order("created_at asc")
	if c.Query("all") != "true" {
		query = query.Where("responded = ?", false)
	}
	if dateKey := c.Query("date_key"); dateKey != "" {
		query = query.Where("date_key = ?", dateKey)
	}

	var hooks []db.ReturnHook
	if err := query.Find(&hooks).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "获取回访提示失败")
		return
	}

	items := make([]gin.H, 0, len(hooks))
	for _, hook := range hooks {
		items = append(items, gin.H{
			"id":        hook.ID,
			"prompt":    hook.Prompt,
			"date_key":  hook.DateKey,
			"responded": hook.Responded,
		})
	}
	c.JSON(http.StatusOK, gin.H{"hooks": items})
}

// RespondReturnHook 标记回访提示已响应
func (a *API) RespondReturnHook(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的提示ID")
		return
	}

	var hook db.ReturnHook
	if err := a.db.First(&hook, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "回访提示不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取回访提示失败")
		return
	}

	if !hook.Responded {
		hook.Responded = true
		if err := a.db.Save(&hook).Error; err != nil {
			respondError(c, http.StatusInternalServerError, "更新回访提示失败")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        hook.ID,
		"prompt":    hook.Prompt,
		"date_key":  hook.DateKey,
		"responded": hook.Responded,
	})
}
