package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	oshttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kruzhok/internal/auth"
	"kruzhok/internal/config"
	"kruzhok/internal/http"
	"kruzhok/internal/social"
	"kruzhok/internal/storage"
	"kruzhok/internal/ws"

	"golang.org/x/sync/errgroup"
)

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := storage.NewBboltStorage(cfg.DBFile)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	authService, err := auth.NewAuthService(ctx, auth.Config{
		Secret:      cfg.AuthSecret,
		TokenExpiry: cfg.TokenExpiry,
	}, store)
	if err != nil {
		return err
	}

	logger := slog.Default()
	hub := ws.NewHub(store, logger)
	friends := social.NewFriendService(store, hub, logger)
	groups := social.NewGroupService(store, hub, logger)

	apiServer := http.NewAPIServer(authService, hub, store, friends, groups, cfg.APIAddr)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := apiServer.Start()
		if err != nil && err != oshttp.ErrServerClosed {
			return err
		}
		return nil
	})

	// Wait for context cancellation (signal)
	g.Go(func() error {
		<-gCtx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("API server shutdown error: %v", err)
		}
		return nil
	})

	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Application error: %v", err)
	}
}
