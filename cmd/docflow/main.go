package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/docflow/docflow/pkg/cmd"
	"github.com/docflow/docflow/pkg/log"
	"github.com/docflow/docflow/pkg/notify"
	"github.com/docflow/docflow/pkg/workflow"
)

const defaultPort = 9091

func main() {
	root := &cli.Command{
		Name:                  "docflow",
		Usage:                 "Document workflow engine",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (postgres://...) or a data directory for file persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			newServeCommand(),
			newSweepCommand(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the admin API, the notification queue and the periodic scheduled sweep",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "sweep-schedule",
				Usage:   "Cron expression for the scheduled-trigger sweep",
				Value:   "@hourly",
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "smtp-host",
				Usage:   "SMTP host for email notifications",
				Sources: cli.EnvVars("SMTP_HOST"),
			},
			&cli.IntFlag{
				Name:    "smtp-port",
				Usage:   "SMTP port for email notifications",
				Value:   587,
				Sources: cli.EnvVars("SMTP_PORT"),
			},
			&cli.StringFlag{
				Name:    "smtp-username",
				Usage:   "SMTP username",
				Sources: cli.EnvVars("SMTP_USERNAME"),
			},
			&cli.StringFlag{
				Name:    "smtp-password",
				Usage:   "SMTP password",
				Sources: cli.EnvVars("SMTP_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "smtp-from",
				Usage:   "Sender address for email notifications",
				Sources: cli.EnvVars("SMTP_FROM"),
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("docflow")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Initializing Docflow")

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	smtp := notify.SMTPConfig{
		Host:     command.String("smtp-host"),
		Port:     command.Int("smtp-port"),
		Username: command.String("smtp-username"),
		Password: command.String("smtp-password"),
		From:     command.String("smtp-from"),
	}

	queue := notify.NewQueue(
		notify.NewEmail(smtp, nil, logger),
		notify.NewWebhook(nil, logger),
		logger,
	)

	defer func() {
		if err := queue.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close notification queue", "error", err)
		}
	}()

	go func() {
		if err := queue.Run(ctx); err != nil {
			logger.ErrorContext(ctx, "Notification queue stopped", "error", err)
		}
	}()

	engine := workflow.NewEngine(store, queue, nil, logger)

	scheduler := cron.New()

	_, err = scheduler.AddFunc(command.String("sweep-schedule"), func() {
		if err := engine.CheckScheduledWorkflows(ctx, time.Now().UTC()); err != nil {
			logger.ErrorContext(ctx, "Scheduled sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	scheduler.Start()
	defer scheduler.Stop()

	api := NewAPI(logger, store, engine)
	app := api.App()

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")

		if err := app.Shutdown(); err != nil {
			logger.Error("Failed to shut down API server", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(command.Int("port")))
}

func newSweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Run one scheduled-trigger sweep and exit",
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("docflow-sweep")

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			queue := notify.NewQueue(
				notify.NewEmail(notify.SMTPConfig{}, nil, logger),
				notify.NewWebhook(nil, logger),
				logger,
			)
			defer func() { _ = queue.Close() }()

			go func() { _ = queue.Run(ctx) }()

			engine := workflow.NewEngine(store, queue, nil, logger)

			return engine.CheckScheduledWorkflows(ctx, time.Now().UTC())
		},
	}
}
