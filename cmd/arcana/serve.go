package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/arcana/internal/adapters/assets"
	httpadapter "github.com/PabloGalante/arcana/internal/adapters/http"
	"github.com/PabloGalante/arcana/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/arcana/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/arcana/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/arcana/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/arcana/internal/app/dialogue"
	"github.com/PabloGalante/arcana/internal/config"
	"github.com/PabloGalante/arcana/internal/deck"
	"github.com/PabloGalante/arcana/internal/domain"
	"github.com/PabloGalante/arcana/internal/observability"
	"github.com/PabloGalante/arcana/internal/session"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the event webhook",
		Long:  "Start the HTTP webhook that accepts chat events and answers with the actions to render. Configuration comes from ARCANA_* environment variables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := observability.Init(os.Stdout, cfg.LogLevel)

	shutdownTracing, err := observability.SetupTracing(ctx, "arcana", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	d, err := loadDeck(cfg)
	if err != nil {
		return err
	}
	log.Info("deck loaded", "deck", d.Name(), "cards", d.Len())

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()
	log.Info("session storage ready", "backend", cfg.StorageBackend)

	model, err := openModel(ctx, cfg)
	if err != nil {
		return err
	}

	images, err := assets.NewDirectory(cfg.AssetsDir)
	if err != nil {
		return err
	}

	store := session.NewStore(backend, d)
	ctrl, err := dialogue.NewController(store, model, images, dialogue.WithCommandPrefix(cfg.CommandPrefix))
	if err != nil {
		return err
	}

	cleanup := session.NewCleanupService(store, cfg.SessionTTL, cfg.CleanupInterval)
	cleanup.Start(ctx)
	defer cleanup.Stop()

	srv := httpadapter.NewServer(ctrl, cfg.HandlerTimeout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("arcana listening", "addr", cfg.Addr())
		if err := srv.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func loadDeck(cfg *config.Config) (*deck.Deck, error) {
	if cfg.DeckFile != "" {
		return deck.LoadFile(cfg.DeckFile)
	}
	return deck.Embedded(cfg.Deck)
}

// openBackend picks the session storage. The returned close func is always
// safe to call.
func openBackend(ctx context.Context, cfg *config.Config) (session.Backend, func(), error) {
	log := observability.Logger()
	closer := func(c io.Closer) func() {
		return func() {
			if err := c.Close(); err != nil {
				log.Warn("closing session storage", "error", err)
			}
		}
	}

	switch cfg.StorageBackend {
	case "sqlite":
		s, err := sqlitestore.NewStore(cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, closer(s), nil

	case "firestore":
		s, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, err
		}
		return s, closer(s), nil

	default:
		log.Warn("using in-memory session storage; sessions are lost on restart")
		return memstore.NewSessionStore(), func() {}, nil
	}
}

func openModel(ctx context.Context, cfg *config.Config) (domain.LanguageModel, error) {
	if cfg.MockLLM() {
		observability.Logger().Info("using mock language model")
		return llm.NewMockLLM(), nil
	}
	observability.Logger().Info("using gemini language model", "model", cfg.ModelName)
	return llm.NewGeminiClient(ctx, llm.GeminiConfig{
		APIKey:   cfg.GeminiAPIKey,
		Project:  cfg.GCPProjectID,
		Location: cfg.GCPLocation,
		Model:    cfg.ModelName,
	})
}
