package main

import (
	"log"
	"time"

	"api/config"
	"api/database"
	_ "api/docs"
	"api/middleware"
	v1 "api/routes/v1"
	"api/services"
	"api/session"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Quiz Session API
// @version 1.0
// @description Quiz attempt session management API
// @BasePath /api/v1
func main() {
	config.LoadEnv()
	sessionCfg := config.SessionConfigFromEnv()

	database.InitDB()
	database.InitRedis()

	manager := session.NewManager(
		session.NewGormStore(database.DB),
		session.NewRedisCache(database.Redis),
		sessionCfg,
	)
	defer manager.Close()

	startExpirySweep(sessionCfg)
	middleware.UpdateSystemMetrics()

	r := gin.Default()
	v1.Register(r, manager)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	log.Printf("Listening on :%s", config.ServerPort)
	if err := r.Run(":" + config.ServerPort); err != nil {
		log.Fatal("failed to start server: ", err)
	}
}

// startExpirySweep periodically expires attempts whose time budget ran out
func startExpirySweep(cfg config.SessionConfig) {
	go func() {
		for {
			time.Sleep(cfg.ExpirySweep)
			expired, err := services.ExpireOverdueAttempts(cfg.TimeBudget)
			if err != nil {
				log.Printf("Expiry sweep failed: %v", err)
				continue
			}
			if expired > 0 {
				log.Printf("Expired %d overdue sessions", expired)
			}
		}
	}()
}
