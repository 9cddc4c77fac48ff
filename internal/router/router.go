package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("habitloop_session", store))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.POST("/api/login", api.Login)
	r.POST("/api/logout", api.Logout)

	// 需要认证的 API 路由
	auth := r.Group("/api")
	auth.Use(handler.AuthRequired())
	{
		auth.GET("/habits", api.ListHabits)
		auth.GET("/habits/:id", api.GetHabit)
		auth.POST("/habits", api.CreateHabit)
		auth.PUT("/habits/:id", api.UpdateHabit)
		auth.DELETE("/habits/:id", api.DeleteHabit)
		auth.POST("/habits/:id/completions", api.RecordCompletion)
		auth.GET("/habits/:id/completions", api.ListCompletions)

		auth.GET("/rules", api.ListRules)
		auth.GET("/rules/:id", api.GetRule)
		auth.POST("/rules", api.CreateRule)
		auth.PUT("/rules/:id", api.UpdateRule)
		auth.DELETE("/rules/:id", api.DeleteRule)

		auth.GET("/reminders", api.ListReminders)
		auth.POST("/reminders/:id/state", api.TransitionReminder)
		auth.POST("/reminders/:id/snooze", api.SnoozeReminder)

		auth.GET("/settings", api.GetSettings)
		auth.PUT("/settings", api.UpdateSettings)

		auth.POST("/evaluate", api.RunEvaluation)

		auth.GET("/salvage-plans", api.ListSalvagePlans)
		auth.POST("/salvage-plans/:id/accept", api.AcceptSalvagePlan)

		auth.GET("/return-hooks", api.ListReturnHooks)
		auth.POST("/return-hooks/:id/respond", api.RespondReturnHook)
	}

	return r
}
