package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yungbote/waxal-backend/internal/app"
	"github.com/yungbote/waxal-backend/internal/config"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

func main() {
	check := flag.Bool("check", false, "verify variables, record tables and ffprobe, then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to init app", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if *check {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		if err := a.Check(checkCtx); err != nil {
			log.Error("Deployment check failed", "error", err)
			a.Close()
			os.Exit(1)
		}
		log.Info("Deployment check passed")
		return
	}

	a.Start()
	if err := a.Run(ctx); err != nil {
		log.Error("Server failed", "error", err)
		a.Close()
		os.Exit(1)
	}
}
