package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"avsched/internal/config"
	"avsched/internal/logging"
	"avsched/internal/r25"
	"avsched/internal/scheduler"
	"avsched/internal/storage"
	"avsched/internal/web"
)

func main() {
	cfg, err := config.Load()
	must(err)

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	must(err)
	defer func() { _ = logger.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	notifiers, err := scheduler.MakeNotifiers(ctx, cfg)
	must(err)
	defer notifiers.Close()
	svc, err := scheduler.NewService(db, cfg, r25.NewClient(cfg, logger), notifiers, logger)
	must(err)
	srv, err := web.NewServer(db, cfg, logger)
	must(err)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx, cfg.HTTPListen) })
	g.Go(func() error { return svc.Run(gctx) })
	must(g.Wait())
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
