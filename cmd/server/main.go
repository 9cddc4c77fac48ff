package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/config"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/handler"
	"github.com/habitloop/internal/router"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 可选：通过环境变量引导初始账号
	if err := db.EnsureUser(cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		log.Fatalf("failed to ensure root user: %v", err)
	}

	// 设置并运行 Gin 服务器
	api := handler.NewAPI(db.DB)
	r := router.SetupRouter(api, cfg.SessionSecret)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
