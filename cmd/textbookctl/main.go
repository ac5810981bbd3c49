package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"textbook-qa-be/internal/bootstrap"
	"textbook-qa-be/internal/cli"
	"textbook-qa-be/internal/config"
	"textbook-qa-be/internal/pkg/logger"
	"textbook-qa-be/internal/repository/unitofwork"
	"textbook-qa-be/pkg/database"
	"textbook-qa-be/pkg/rag/cache"
	pktNats "textbook-qa-be/pkg/nats"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, boot); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func boot(ctx context.Context) (*cli.Deps, error) {
	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sysLogger := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	container, err := bootstrap.NewContainer(ctx, uowFactory, cfg, sysLogger)
	if err != nil {
		return nil, err
	}

	deps := &cli.Deps{
		Books:   container.BookService,
		QA:      container.QAService,
		Storage: container.Storage,
		Cache:   cache.NewRepositoryStore(uowFactory),
		Close:   container.Close,
	}

	if cfg.App.NatsURL != "" {
		sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			deps.Events = sub
			deps.Close = func() {
				sub.Close()
				container.Close()
			}
		}
	}
	return deps, nil
}
