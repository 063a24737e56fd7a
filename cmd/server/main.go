package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/modastyle/backend/internal/auth"
	"github.com/modastyle/backend/internal/catalog"
	"github.com/modastyle/backend/internal/checkout"
	"github.com/modastyle/backend/internal/config"
	"github.com/modastyle/backend/internal/db"
	handler "github.com/modastyle/backend/internal/handler/http"
	"github.com/modastyle/backend/internal/mail"
	"github.com/modastyle/backend/internal/order"
	"github.com/modastyle/backend/internal/payment"
	"github.com/modastyle/backend/internal/stats"
	"github.com/modastyle/backend/internal/user"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "modastyle-backend").Logger()

	log.Info().Msg("Storefront backend starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbConn, err := db.New(ctx, cfg.Postgres)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	if err := db.MigrateUp(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	catalogRepo := catalog.NewRepository(dbConn.Pool)
	orderRepo := order.NewRepository(dbConn.Pool)
	userRepo := user.NewRepository(dbConn.Pool)
	statsRepo := stats.NewRepository(dbConn.Pool)

	var notifier order.Notifier
	if cfg.SMTP.Host != "" {
		mailer, err := mail.New(cfg.SMTP)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize mailer")
		}
		notifier = mailer
	} else {
		log.Warn().Msg("SMTP not configured, order emails disabled")
	}

	gateway := payment.NewStripeGateway(cfg.Stripe, cfg.App.PublicURL)
	processor := payment.NewProcessor(orderRepo, notifier, cfg.Stripe.WebhookSecret)
	tokens := auth.NewTokenManager(cfg.JWT)

	catalogService := catalog.NewService(catalogRepo)
	orderService := order.NewService(orderRepo, notifier, order.LogMetrics{})
	userService := user.NewService(userRepo)
	statsService := stats.NewService(statsRepo)
	checkoutService := checkout.NewService(catalogRepo, orderRepo, gateway, checkout.ShippingPolicy{
		FlatFee:       cfg.Shipping.FlatFee,
		FreeThreshold: cfg.Shipping.FreeThreshold,
	})

	router := handler.NewRouter(handler.Handlers{
		Auth:     handler.NewAuthHandler(userService, tokens, cfg.JWT.TTL),
		Catalog:  handler.NewCatalogHandler(catalogService),
		Checkout: handler.NewCheckoutHandler(checkoutService),
		Order:    handler.NewOrderHandler(orderService),
		Stats:    handler.NewStatsHandler(statsService),
		Webhook:  handler.NewWebhookHandler(processor),
		Health:   handler.NewHealthHandler(catalogRepo),
		Tokens:   tokens,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
