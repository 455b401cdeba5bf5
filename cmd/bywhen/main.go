package main

import (
	"context"
	"fmt"
	"github.com/clambin/bywhen"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/slack-go/slack"
	"github.com/urfave/cli/v3"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
)

func main() {
	var version string
	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		version = buildInfo.Main.Version
	}

	cmd := &cli.Command{
		Name:    "bywhen",
		Usage:   "Slack bot that sets reminders",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file to read the configuration from. Environment variables take precedence",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "log debug messages",
				Sources: cli.EnvVars("DEBUG"),
			},
		},
		Action: run,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := cmd.Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := bywhen.LoadConfig(cmd.String("env-file"))
	if err != nil {
		return err
	}

	level := cfg.Level()
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger.Info("bywhen starting", "version", cmd.Version, "config", cfg)

	options := []slack.Option{slack.OptionDebug(level == slog.LevelDebug)}
	if cfg.AppToken != "" {
		options = append(options, slack.OptionAppLevelToken(cfg.AppToken))
	}
	client := slack.New(cfg.BotToken, options...)

	b := bywhen.NewBot(client,
		bywhen.WithLogger(logger.With("component", "bot")),
		bywhen.WithReminderClient(slack.New(cfg.ReminderToken())),
	)
	if _, err = b.Authenticate(ctx); err != nil {
		return err
	}
	prometheus.MustRegister(b)

	if cfg.SocketMode {
		app := bywhen.NewSlackApp(client, logger.With("component", "slackapp"))
		return b.RunSocketMode(ctx, app)
	}

	logger.Info("serving Slack requests over HTTP", "triggers", b.Triggers())
	s := bywhen.NewServer(cfg.Port, cfg.SigningSecret, b, prometheus.DefaultGatherer, logger.With("component", "server"))
	return s.Run(ctx)
}
