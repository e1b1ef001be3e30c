package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fintally/tally/config"
	"github.com/fintally/tally/pkg/batch"
	"github.com/fintally/tally/pkg/events"
	"github.com/fintally/tally/pkg/kafka"
	"github.com/fintally/tally/pkg/learning"
	"github.com/fintally/tally/pkg/matching"
	"github.com/fintally/tally/pkg/routes/batchjob"
	"github.com/fintally/tally/pkg/routes/health"
	"github.com/fintally/tally/pkg/routes/reconcile"
	"github.com/fintally/tally/pkg/routes/score"
	"github.com/fintally/tally/pkg/routes/settings"
	"github.com/fintally/tally/pkg/scoring"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file found, relying on system env")
	}

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Printf("failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background()) //nolint:errcheck

	// Engine core
	store := learning.NewStore(logger.Named("learning"))
	aggregator := scoring.NewAggregator(store, logger.Named("scoring"))
	engine := matching.NewEngine(aggregator, logger.Named("matching"))

	var producer *kafka.Producer
	var emitter *events.Emitter
	if cfg.KafkaProducerEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger.Named("kafka"))
		emitter = events.NewEmitter(producer, logger.Named("events"))
	}

	manager := batch.NewManager(engine, store, emitter, batch.Config{
		Workers:         cfg.BatchWorkerCount,
		QueueSize:       cfg.BatchQueueSize,
		JobMaxAge:       time.Duration(cfg.BatchJobMaxAgeHours) * time.Hour,
		CleanupInterval: time.Duration(cfg.BatchCleanupIntervalMinutes) * time.Minute,
	}, logger.Named("batch"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager.Start(ctx)
	defer manager.Stop()

	// Optional ingestion from the extraction pipeline
	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger.Named("kafka"), submitHandler(manager))
		if err := consumer.Start(ctx); err != nil {
			logger.Fatal("failed to start kafka consumer", zap.Error(err))
		}
	}

	e := newServer(cfg, logger, aggregator, engine, manager, consumer)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		srv := &http.Server{
			Addr:              addr,
			ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
			WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
			IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
			ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		}
		logger.Info("http server starting", zap.String("addr", addr), zap.String("version", version))
		if err := e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.Error("kafka consumer shutdown failed", zap.Error(err))
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka producer close failed", zap.Error(err))
		}
	}
}

func newServer(cfg config.Config, logger *zap.Logger, aggregator *scoring.Aggregator, engine *matching.Engine, manager *batch.Manager, consumer *kafka.Consumer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	checker := health.NewChecker(healthConsumer(consumer), version)
	checker.RegisterRoutes(e)
	checker.SetReady(true)

	api := e.Group("/api/v1")
	score.NewHandler(aggregator, manager).Register(api.Group("/score"))
	reconcile.NewHandler(engine, manager).Register(api.Group("/reconcile"))
	batchjob.NewHandler(manager).Register(api.Group("/batch"))
	settings.NewHandler(manager).Register(api.Group("/settings"))

	logger.Info("routes registered", zap.String("app", cfg.AppName))
	return e
}

// submitHandler adapts the batch manager to the consumer's message handler
func submitHandler(manager *batch.Manager) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.IncomingMessage) error {
		req, err := msg.ParseSubmitJobRequest()
		if err != nil {
			return err
		}
		_, err = manager.Submit(ctx, *req)
		return err
	}
}

// healthConsumer keeps the checker's interface value nil when the consumer
// pointer is nil, so a disabled consumer never reports unhealthy
func healthConsumer(c *kafka.Consumer) health.Consumer {
	if c == nil {
		return nil
	}
	return c
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zc = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}
