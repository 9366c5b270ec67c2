// Package main provides the intent pipeline dispatcher service.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/seoforge/intent-engine/pkg/cmd"
	"github.com/seoforge/intent-engine/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "intent-dispatcher",
		Usage:                 "Consume pipeline events and drive stage workers",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dispatcher-id",
				Aliases: []string{"id"},
				Usage:   "Custom dispatcher ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("DISPATCHER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus provider (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka broker list",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.DurationFlag{
				Name:    "stuck-after",
				Usage:   "How long a workflow may sit in a running substate before the sweep reports it",
				Value:   30 * time.Minute,
				Sources: cli.EnvVars("STUCK_AFTER"),
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

			dispatcherID := command.String("dispatcher-id")
			if dispatcherID == "" {
				dispatcherID = fmt.Sprintf("dispatcher-%s", uuid.New().String()[:8])
			}

			logger := log.WithModule("intent-dispatcher").With("dispatcher_id", dispatcherID)
			logger.InfoContext(ctx, "Initializing Intent Engine Dispatcher")

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "intent-dispatcher",
				command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			return NewDispatcherManager(
				dispatcherID,
				store,
				eventBus,
				logger,
				command.Duration("stuck-after"),
			).Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
