package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/flowops/pkg/cmd"
	"github.com/dukex/flowops/pkg/config"
	"github.com/dukex/flowops/pkg/log"
	"github.com/dukex/flowops/pkg/otelhelper"
	"github.com/dukex/flowops/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "flowops-api",
		Usage:                 "Create and edit flow versions over HTTP",
		EnableShellCompletion: true,
		Flags:                 flags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}

			return run(ctx, cfg)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func flags() []cli.Flag {
	defaults := config.Default()

	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
			Sources: cli.EnvVars("FLOWOPS_CONFIG"),
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaults.Port,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Database connection URL for persistence (file://, postgres://, redis://)",
			Value:   defaults.DatabaseURL,
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (none, gochannel, kafka)",
			Value:   defaults.EventBus,
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.IntFlag{
			Name:    "max-apply-retries",
			Usage:   "Reload attempts when a flow version changes while an operation is applied",
			Value:   defaults.MaxApplyRetries,
			Sources: cli.EnvVars("MAX_APPLY_RETRIES"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export OpenTelemetry traces over OTLP/HTTP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   defaults.LogLevel,
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

// loadConfig reads the config file, then applies the flags that were set.
func loadConfig(command *cli.Command) (config.Config, error) {
	cfg, err := config.Load(command.String("config"))
	if err != nil {
		return config.Config{}, err
	}

	if command.IsSet("port") {
		cfg.Port = command.Int("port")
	}

	if command.IsSet("database-url") {
		cfg.DatabaseURL = command.String("database-url")
	}

	if command.IsSet("event-bus") {
		cfg.EventBus = command.String("event-bus")
	}

	if command.IsSet("kafka-brokers") {
		cfg.KafkaBrokers = command.String("kafka-brokers")
	}

	if command.IsSet("max-apply-retries") {
		cfg.MaxApplyRetries = command.Int("max-apply-retries")
	}

	if command.IsSet("tracing") {
		cfg.Tracing = command.Bool("tracing")
	}

	if command.IsSet("log-level") {
		cfg.LogLevel = command.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

func run(ctx context.Context, cfg config.Config) error {
	log.Setup(cfg.LogLevel)

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing flowops API", "port", cfg.Port, "event_bus", cfg.EventBus)

	tracer, shutdownTracer, err := otelhelper.NewTracer(ctx, cfg.ServiceName, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("Failed to shut down tracer", log.Error(err))
		}
	}()

	persistence, err := cmd.NewPersistence(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(context.Background()); err != nil {
			logger.Error("Failed to close persistence", log.Error(err))
		}
	}()

	eventBus, err := cmd.NewEventBus(cfg.EventBus, cfg.KafkaBrokers, cfg.ServiceName, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", log.Error(err))
		}
	}()

	if err := watchEvents(ctx, eventBus, log.WithModule("events")); err != nil {
		return err
	}

	flowVersions := services.NewFlowVersions(persistence, log.WithModule("flow_versions"),
		services.WithEventPublisher(eventBus),
		services.WithTracer(tracer),
		services.WithMaxApplyRetries(cfg.MaxApplyRetries),
	)

	api := NewAPI(logger, flowVersions, eventBus)

	if err := api.Start(ctx, cfg.Port); err != nil {
		return fmt.Errorf("API server stopped: %w", err)
	}

	return nil
}
