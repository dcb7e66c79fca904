// Package main is the entry point for the mtrack CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"mtrack/internal/backend/rest"
	"mtrack/internal/cli"
	"mtrack/internal/commands"
	"mtrack/internal/config"
	"mtrack/internal/session"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	factory := func(ctx context.Context, cfg *config.Config, log *zap.Logger) (*commands.Env, error) {
		store := session.NewStore(cfg.TokenPath())
		if err := store.Load(); err != nil {
			return nil, fmt.Errorf("failed to load token: %w", err)
		}
		gate, err := session.NewGate(cfg.APIURL, store,
			session.WithTimeout(cfg.Timeout),
			session.WithLogger(log),
		)
		if err != nil {
			return nil, err
		}
		return &commands.Env{
			Service: rest.New(gate, log),
			Session: gate,
			Log:     log,
			Stdin:   os.Stdin,
		}, nil
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	// Run and exit with code
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}
