package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/albertniderhofer/S3PolicyManager/cmd/policy_worker/handler"
	"github.com/albertniderhofer/S3PolicyManager/logger"
	"github.com/albertniderhofer/S3PolicyManager/metrics"
	"github.com/albertniderhofer/S3PolicyManager/middlewares"
	"github.com/albertniderhofer/S3PolicyManager/pkg/blacklist"
	"github.com/albertniderhofer/S3PolicyManager/pkg/config"
	"github.com/albertniderhofer/S3PolicyManager/pkg/database"
	"github.com/albertniderhofer/S3PolicyManager/pkg/kafka"
	"github.com/albertniderhofer/S3PolicyManager/pkg/repositories"
	"github.com/albertniderhofer/S3PolicyManager/pkg/utils"
	"github.com/albertniderhofer/S3PolicyManager/pkg/workflow"
	"github.com/albertniderhofer/S3PolicyManager/tracing"
)

func main() {
	_ = godotenv.Load()

	logr, err := logger.InitLogger()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	defer logr.Sync()

	shutdownTracer := tracing.InitTracer("policy-worker", logr)
	defer shutdownTracer()
	tracer := otel.Tracer("policy-worker")

	cfg, err := config.LoadConfig(utils.GetEnvDefault("CONFIG_PATH", "./config.yaml"))
	if err != nil {
		logr.Fatal("failed to load config", zap.Error(err))
	}

	dsn := os.Getenv("POLICY_DB")
	db, err := database.InitDB(dsn)
	if err != nil {
		logr.Fatal("failed to initialize database", zap.Error(err))
	}

	logr.Info("Starting policy workflow worker")

	metrics.InitAPIMetrics()
	metrics.InitWorkerMetrics()
	metrics.InitKafkaMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		logr.Info("Shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	policyRepo := repositories.NewPolicyRepository(db)
	indexRepo := repositories.NewRuleIndexRepository(db)
	cidrRepo := repositories.NewCidrRepository(db)
	cidrCache := blacklist.NewCache(cidrRepo, cfg.Workflow.BlacklistTTL.Std(), logr)
	publisher := &workflow.SimulatedPublisher{Delay: cfg.Workflow.PublishDelay.Std(), Log: logr}

	engine := workflow.NewEngine(
		policyRepo, indexRepo, cidrCache, publisher,
		logr, tracer, cfg.Workflow.PublishTimeout.Std(),
	)

	consumer, err := kafka.NewConsumerFromEnv(ctx, cfg.Kafka.EventsTopic, cfg.Kafka.ConsumerGroup)
	if err != nil {
		logr.Fatal("failed to initialize Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	producer, err := kafka.NewProducerFromEnv()
	if err != nil {
		logr.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	go handler.HandleEvents(ctx, consumer, producer, engine, cfg, logr, tracer)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	wrappedMux := middlewares.MetricsMiddleware(mux)

	if err := http.ListenAndServe(":3001", wrappedMux); err != nil {
		logr.Fatal("metrics server failed", zap.Error(err))
	}
}
