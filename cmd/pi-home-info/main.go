package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwestlin/pi-home-info/pkg/climate"
	"github.com/bwestlin/pi-home-info/pkg/config"
	"github.com/bwestlin/pi-home-info/pkg/controller"
	"github.com/bwestlin/pi-home-info/pkg/log"
	"github.com/bwestlin/pi-home-info/pkg/render"
	"github.com/bwestlin/pi-home-info/pkg/scheduler"
	"github.com/bwestlin/pi-home-info/pkg/server"
	"github.com/bwestlin/pi-home-info/pkg/utility"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// init packages
	u := utility.Configured()
	v := climate.Configured()
	c := controller.Configured(u, v)
	sched := scheduler.Configured()
	term := render.Configured()
	srv := server.Configured()

	logFormat := lflag.String("log-format", "json", "Log output format (json or text)")
	envFile := lflag.String("env-file", ".env", "Optional file with TIBBER, VERISURE_USER and VERISURE_PASSWORD")

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	// stdout is for the rendered output
	handler, err := log.NewHandler(os.Stderr, *logFormat, level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := slog.New(handler)
	log.SetDefault(logger)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = log.With(ctx, logger)

	creds, err := config.LoadCredentials(*envFile)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load credentials", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "credentials loaded", slog.Attr{Key: "configured", Value: config.LogValue(creds)})

	job := func(jobCtx context.Context) {
		jobCtx = log.With(jobCtx, logger)
		snap := c.RunCycle(jobCtx, creds)
		if err := term.Render(snap); err != nil {
			log.Ctx(jobCtx).WarnContext(jobCtx, "failed to render", slog.Any("error", err))
		}
		srv.SetSnapshot(snap)
	}

	if err := sched.Start(sched.Interval(), job); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	defer sched.Stop()

	if srv.Enabled() {
		// Run will block until context is canceled or error happens
		if err := srv.Run(ctx); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
			sched.Stop()
			os.Exit(1)
		}
	} else {
		<-ctx.Done()
	}
	log.Ctx(ctx).InfoContext(ctx, "exited cleanly")
}
