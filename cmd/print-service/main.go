package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/printdesk/internal/api/handler"
	"github.com/cuongbtq/printdesk/internal/api/router"
	"github.com/cuongbtq/printdesk/internal/config"
	"github.com/cuongbtq/printdesk/internal/files"
	"github.com/cuongbtq/printdesk/internal/gateway"
	"github.com/cuongbtq/printdesk/internal/ledger"
	"github.com/cuongbtq/printdesk/internal/notify"
	"github.com/cuongbtq/printdesk/internal/pricing"
	"github.com/cuongbtq/printdesk/internal/printer"
	"github.com/cuongbtq/printdesk/internal/store"
	"github.com/cuongbtq/printdesk/internal/workflow"
	"github.com/cuongbtq/printdesk/shared/logger"
	"github.com/cuongbtq/printdesk/shared/postgresql"
	"github.com/cuongbtq/printdesk/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("PRINTDESK_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/print-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting print service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Step 1: file storage
	fileStore := files.New(&files.Config{
		Logger:      appLogger.Component("files"),
		DownloadDir: cfg.Shop.DownloadDir,
		StagingDir:  cfg.Shop.StagingDir,
	})
	if err := fileStore.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to prepare storage directories: %w", err)
	}

	// Step 2: job store and retention sweeper
	jobStore := store.New(&store.Config{
		Logger:    appLogger.Component("store"),
		Cleaner:   fileStore,
		Retention: cfg.Shop.Retention(),
	})
	sweeper := store.NewSweeper(jobStore, cfg.Workflow.SweepInterval, appLogger.Component("sweeper"))

	// Step 3: message broker
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, cfg.App.Name, appLogger.Component("rabbitmq"))
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	appLogger.Info("RabbitMQ connection established")

	// Step 4: optional order ledger
	var (
		dbClient    *postgresql.Client
		orderLedger *ledger.Ledger
	)
	if cfg.Database.Enabled {
		dbClient, err = initPostgreSQL(&cfg.Database, cfg.App.Name, appLogger.Component("postgresql"))
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer dbClient.Close()

		orderLedger = ledger.New(dbClient.GetDB(), appLogger.Component("ledger"))
		if err := orderLedger.EnsureSchema(context.Background()); err != nil {
			return fmt.Errorf("failed to prepare order ledger: %w", err)
		}

		appLogger.Info("Database connection established")
	}

	// Step 5: printer
	printerClient, err := printer.New(&printer.Config{
		Logger:  appLogger.Component("printer"),
		Mode:    cfg.Printer.Mode,
		Command: cfg.Printer.Command,
		Args:    cfg.Printer.Args,
		Address: cfg.Printer.Address,
		Timeout: cfg.Printer.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize printer: %w", err)
	}

	// Step 6: workflow
	formatter := pricing.Formatter{Currency: cfg.Shop.Currency}
	publisher := gateway.NewPublisher(rabbitClient, appLogger.Component("publisher"))

	scheduler := notify.NewScheduler(&notify.Config{
		Logger:      appLogger.Component("notify"),
		Jobs:        jobStore,
		Sender:      publisher,
		Formatter:   formatter,
		Delay:       cfg.Workflow.NotifyDelay,
		OwnerID:     cfg.Shop.OwnerID,
		NotifyOwner: cfg.Shop.NotifyOwner,
	})

	engineCfg := &workflow.Config{
		Logger:          appLogger.Component("workflow"),
		Store:           jobStore,
		PageCounter:     files.PDFPageCounter{},
		Printer:         printerClient,
		Sender:          publisher,
		Files:           fileStore,
		Notifier:        scheduler,
		Formatter:       formatter,
		Rate:            cfg.Shop.PricePerPage,
		OwnerID:         cfg.Shop.OwnerID,
		NotifyOwner:     cfg.Shop.NotifyOwner,
		StagingDir:      cfg.Shop.StagingDir,
		PrintPacing:     cfg.Workflow.PrintPacing,
		CompletionGrace: cfg.Workflow.CompletionGrace,
	}
	if orderLedger != nil {
		engineCfg.Recorder = orderLedger
	}
	engine := workflow.NewEngine(engineCfg)

	// Step 7: event intake
	dispatcher := gateway.NewDispatcher(&gateway.DispatcherConfig{
		Logger:      appLogger.Component("dispatcher"),
		Handler:     engine,
		Concurrency: cfg.Worker.Concurrency,
		QueueSize:   cfg.Worker.QueueSize,
	})
	consumer := gateway.NewConsumer(&gateway.ConsumerConfig{
		Logger:        appLogger.Component("consumer"),
		Source:        rabbitClient,
		Dispatcher:    dispatcher,
		ConsumerTag:   cfg.RabbitMQ.Consumer.Tag,
		PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher.Start(ctx)
	sweeper.Start(ctx)

	// consumer intake stops before the workers so in-flight print runs keep a live context
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	errChan := make(chan error, 2)
	go func() {
		if err := consumer.Run(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- fmt.Errorf("consumer stopped: %w", err)
		}
	}()

	// Step 8: HTTP API
	r := initRouter(cfg, appLogger.Component("http"), &handler.Dependencies{
		ServiceName:    cfg.App.Name,
		Jobs:           jobStore,
		Canceler:       engine,
		Events:         dispatcher,
		Cleaner:        fileStore,
		Notifier:       scheduler,
		Rate:           cfg.Shop.PricePerPage,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		HealthChecks:   healthChecks(rabbitClient, dbClient),
	}, orderLedger)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server failed: %w", err)
		}
	}()

	appLogger.Info("Print service is running",
		slog.String("address", addr),
		slog.Int("workers", cfg.Worker.Concurrency),
		slog.String("printer_mode", cfg.Printer.Mode),
		slog.Bool("ledger", orderLedger != nil),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case runErr = <-errChan:
		appLogger.Error("Service error", slog.Any("error", runErr))
	}

	// Stop intake first, then drain in-flight events
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", slog.Any("error", err))
	}

	stopConsumer()

	done := make(chan struct{})
	go func() {
		dispatcher.Stop()
		scheduler.Stop()
		engine.Close()
		sweeper.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Workers stopped gracefully")
	case <-time.After(cfg.Worker.ShutdownTimeout):
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	cancel()

	appLogger.Info("Print service shutdown complete")
	return runErr
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		NoColor:      cfg.NoColor,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, appName string, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		ApplicationName: appName,
		ConnectRetries:  cfg.ConnectRetries,
		RetryInterval:   cfg.RetryInterval,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, appName string, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		DeadLetterExchange: cfg.Queue.DeadLetterExchange,
		RoutingKey:         cfg.RoutingKey,
		PublishRoutingKey:  cfg.PublishRoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
		ConnectionName:     appName,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// healthChecks reports broker and database reachability on /health
func healthChecks(rabbitClient *rabbitmq.Client, dbClient *postgresql.Client) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"rabbitmq": func(context.Context) error {
			if !rabbitClient.IsConnected() {
				return rabbitmq.ErrNotConnected
			}
			return nil
		},
	}
	if dbClient != nil {
		checks["postgresql"] = dbClient.HealthCheck
	}
	return checks
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, deps *handler.Dependencies, orders *ledger.Ledger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	deps.Logger = logger
	if orders != nil {
		deps.Orders = orders
	}

	return router.SetupRouter(deps)
}
