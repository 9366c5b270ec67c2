package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/seoforge/intent-engine/pkg/cmd"
	"github.com/seoforge/intent-engine/pkg/log"
	"github.com/seoforge/intent-engine/pkg/otelhelper"
	"github.com/seoforge/intent-engine/pkg/ratelimit"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "intent-api",
		Usage:                 "Manage content pipeline workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka broker list",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the shared transition rate limiter",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.IntFlag{
				Name:    "rate-limit",
				Usage:   "Transitions allowed per organization per minute",
				Value:   120,
				Sources: cli.EnvVars("RATE_LIMIT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Intent Engine API")

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "intent-api",
				command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			limiter, err := newLimiter(ctx, command)
			if err != nil {
				return err
			}

			defer func() {
				if err := limiter.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close rate limiter", "error", err)
				}
			}()

			var tracer trace.Tracer

			if command.Bool("tracing") {
				tracer, err = otelhelper.NewTracer(ctx, "intent-api")
				if err != nil {
					return err
				}
			}

			api := NewAPI(logger, store, eventBus, limiter, tracer)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func newLimiter(ctx context.Context, command *cli.Command) (ratelimit.Limiter, error) {
	limit := command.Int("rate-limit")

	if redisURL := command.String("redis-url"); redisURL != "" {
		return ratelimit.NewRedisLimiter(ctx, redisURL, limit, time.Minute)
	}

	return ratelimit.NewMemoryLimiter(limit, time.Minute), nil
}
