package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/albertniderhofer/S3PolicyManager/cmd/policy_api/app/routes"
	"github.com/albertniderhofer/S3PolicyManager/logger"
	"github.com/albertniderhofer/S3PolicyManager/metrics"
	"github.com/albertniderhofer/S3PolicyManager/middlewares"
	"github.com/albertniderhofer/S3PolicyManager/pkg/config"
	"github.com/albertniderhofer/S3PolicyManager/pkg/database"
	"github.com/albertniderhofer/S3PolicyManager/pkg/kafka"
	"github.com/albertniderhofer/S3PolicyManager/pkg/models"
	"github.com/albertniderhofer/S3PolicyManager/pkg/utils"
	"github.com/albertniderhofer/S3PolicyManager/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	logr, err := logger.InitLogger()
	if err != nil {
		panic("Failed to initialize zap logger: " + err.Error())
	}
	defer logr.Sync()

	shutdownTracer := tracing.InitTracer("policy-api", logr)
	defer shutdownTracer()

	cfg, err := config.LoadConfig(utils.GetEnvDefault("CONFIG_PATH", "./config.yaml"))
	if err != nil {
		logr.Fatal("failed to load config", zap.Error(err))
	}

	dsn := os.Getenv("POLICY_DB")
	db, err := database.InitDB(dsn)
	if err != nil {
		logr.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateDB(db,
		&models.Tenant{}, &models.APIKey{},
		&models.Policy{}, &models.RuleIndexEntry{}, &models.CidrBlockEntry{},
	); err != nil {
		logr.Fatal("failed to migrate database", zap.Error(err))
	}

	redisClient := database.InitRedis(utils.GetEnvDefault("REDIS_ADDR", "localhost:6379"))

	metrics.InitAPIMetrics()
	metrics.InitKafkaMetrics()

	producer, err := kafka.NewProducerFromEnv()
	if err != nil {
		logr.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	logr.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.EventsTopic))

	router := gin.Default()
	router.Use(middlewares.GinMetricsMiddleware())

	rateLimiter := middlewares.NewRateLimiter(10, 20)

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api")
	v1.Use(rateLimiter.Middleware())
	routes.Policies(v1.Group("/policies"), db, producer, cfg.Kafka.EventsTopic, redisClient, logr)
	routes.UserPolicies(v1.Group("/user-policies"), db, redisClient, logr)

	go handleShutdown(producer, logr)
	if err := router.Run(":3000"); err != nil {
		logr.Fatal("Failed to start server", zap.Error(err))
	}
}

func handleShutdown(producer *kafka.Producer, log *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Shutdown signal received", zap.String("signal", sig.String()))

	if err := producer.Close(); err != nil {
		log.Error("Error closing Kafka producer", zap.Error(err))
	} else {
		log.Info("Kafka producer closed cleanly")
	}

	os.Exit(0)
}
