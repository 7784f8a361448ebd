package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/albertniderhofer/S3PolicyManager/cmd/policy_api/app/internal/handler"
	"github.com/albertniderhofer/S3PolicyManager/middlewares"
	"github.com/albertniderhofer/S3PolicyManager/pkg/kafka"
)

func Policies(router *gin.RouterGroup, db *gorm.DB, producer *kafka.Producer, topic string, redisClient *redis.Client, log *zap.Logger) {
	policyHandler := handler.NewPolicyHandler(db, producer, topic, log)
	auth := middlewares.AuthMiddleware(&middlewares.AuthConfig{RedisClient: redisClient, DB: db})

	router.Use(auth)
	router.GET("/", policyHandler.ListPolicies)
	router.POST("/", policyHandler.CreatePolicy)
	router.GET("/:id", policyHandler.GetPolicy)
	router.PUT("/:id", policyHandler.UpdatePolicy)
	router.DELETE("/:id", policyHandler.DeletePolicy)
}

func UserPolicies(router *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, log *zap.Logger) {
	rulesHandler := handler.NewRulesHandler(db, log)
	auth := middlewares.AuthMiddleware(&middlewares.AuthConfig{RedisClient: redisClient, DB: db})

	router.Use(auth)
	router.GET("/", rulesHandler.LookupRules)
}
