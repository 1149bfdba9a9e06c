package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/innospot/autoflow/pkg/cmd"
	"github.com/innospot/autoflow/pkg/engine"
	"github.com/innospot/autoflow/pkg/log"
	"github.com/innospot/autoflow/pkg/registry"
	"github.com/innospot/autoflow/pkg/triggers/queue"
	"github.com/innospot/autoflow/pkg/workflow"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "autoflow",
		Usage:                 "Create, schedule and run workflows",
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
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "queue-addr",
				Usage:   "Redis address for the trigger queue (empty disables the consumer)",
				Sources: cli.EnvVars("QUEUE_ADDR"),
			},
			&cli.StringFlag{
				Name:    "queue-name",
				Usage:   "Redis list the trigger consumer pops from",
				Value:   "autoflow:triggers",
				Sources: cli.EnvVars("QUEUE_NAME"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("autoflow")
	logger.InfoContext(ctx, "Initializing Autoflow")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		err := store.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger, "autoflow")
	if err != nil {
		return err
	}

	defer func() {
		err := eventBus.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	reg := registry.NewRegistry(logger)
	registry.RegisterDefaults(reg, eventBus, store.DocumentRepository())

	executor := workflow.NewExecutor(reg, logger)
	runner := workflow.NewRunner(executor, store.ExecutionRepository(), eventBus, logger)
	eng := engine.NewEngine(store, runner, eventBus, logger, engine.Config{})

	err = eng.Start(ctx)
	if err != nil {
		return err
	}

	defer func() {
		err := eng.Stop(context.Background())
		if err != nil {
			logger.Error("Failed to stop engine", "error", err)
		}
	}()

	if addr := command.String("queue-addr"); addr != "" {
		consumer, err := queue.NewConsumer(queue.Config{
			Addr:  addr,
			Queue: command.String("queue-name"),
		}, eng, logger)
		if err != nil {
			return err
		}

		err = consumer.Start(ctx)
		if err != nil {
			return err
		}

		defer func() {
			err := consumer.Stop(ctx)
			if err != nil {
				logger.Error("Failed to stop queue consumer", "error", err)
			}
		}()
	}

	api := NewAPI(logger, eng)

	err = api.Start(ctx, command.Int("port"))
	if err != nil {
		logger.ErrorContext(ctx, "API server stopped with error", "error", err)
	}

	return nil
}
