package main

import (
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"gatekeep/internal/common"
	"gatekeep/internal/server/dao"
	"gatekeep/internal/server/handler"
	"gatekeep/internal/server/middleware"
)

func main() {
	common.InitConf()
	common.InitLog()
	config := common.GetConfig()
	logger := common.GetLogger()
	defer logger.Sync()

	if err := dao.Init(); err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}

	queue := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
	})
	defer queue.Close()

	h := handler.New(queue, config.WebhookSecret, logger)

	if config.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.POST("/login", h.UserLogin)
	r.POST("/webhook", h.Webhook)

	authed := r.Group("/", middleware.JWTAuthMiddleware())
	authed.POST("/trigger", h.TriggerRun)
	authed.GET("/runs", h.ListRuns)
	authed.GET("/runs/:uuid", h.GetRun)

	logger.Info("gatekeep server listening on :8080")
	var err error
	if config.CertPath != "" && config.KeyPath != "" {
		err = r.RunTLS(":8080", config.CertPath, config.KeyPath)
	} else {
		err = r.Run(":8080")
	}
	if err != nil {
		panic(err)
	}
}
