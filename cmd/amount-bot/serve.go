package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/facturaIA/amount-extractor-bot/api"
	"github.com/facturaIA/amount-extractor-bot/internal/bot"
	"github.com/facturaIA/amount-extractor-bot/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to Discord and serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateForBot(); err != nil {
		return err
	}

	log.Info().Str("version", Version).Msg("Starting amount-bot")

	metrics := observability.NewMetrics()
	p, err := buildPipeline(cfg, metrics, true)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer p.cleanup()

	handler := bot.NewHandler(
		p.service,
		bot.NewHTTPFetcher(cfg.Bot.MaxDownloadSize),
		metrics,
		cfg.Bot.RequestTimeout,
		cfg.Discord.HelpCommands,
	)
	b, err := bot.New(cfg.Discord.Token, handler, metrics)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Open(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Disconnecting from Discord...")
		return b.Close()
	})

	if cfg.Server.Enabled {
		router := api.NewHandler(p.service, metrics,
			api.WithBotStatus(b.Connected),
			api.WithProfiles(p.profiles),
		).SetupRoutes()

		server := &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      http.TimeoutHandler(router, cfg.Bot.RequestTimeout, `{"error":"request timed out"}`),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		g.Go(func() error {
			log.Info().Str("address", cfg.Server.Address).Msg("Starting HTTP server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server failed: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			log.Info().Msg("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	log.Info().Msg("amount-bot exited")
	return err
}
