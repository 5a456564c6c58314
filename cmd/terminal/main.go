package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/Jukingen/Regkasse-sub000/internal/audit"
	"github.com/Jukingen/Regkasse-sub000/internal/backend"
	"github.com/Jukingen/Regkasse-sub000/internal/config"
	poshttp "github.com/Jukingen/Regkasse-sub000/internal/http"
	"github.com/Jukingen/Regkasse-sub000/internal/service"
	"github.com/Jukingen/Regkasse-sub000/internal/session"
	"github.com/Jukingen/Regkasse-sub000/internal/validation"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := config.Load(os.Getenv("POS_CONFIG_PATH"))
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	gate, err := validation.NewGate(validation.Config{
		FiscalTaxID:       cfg.FiscalTaxID,
		RegisterID:        cfg.RegisterID,
		FiscalTaxIDFormat: cfg.FiscalTaxIDFormat,
		RegisterIDFormat:  cfg.RegisterIDFormat,
	})
	if err != nil {
		logger.Fatal("invalid compliance configuration", zap.Error(err))
	}

	// Collaborator clients
	cartClient := backend.NewCartClient(cfg.CartServiceURL, cfg.RequestTimeout, logger)
	paymentClient := backend.NewPaymentClient(cfg.PaymentGatewayURL, cfg.RequestTimeout, logger)
	printerClient := backend.NewPrinterClient(cfg.PrinterURL, cfg.RequestTimeout, logger)
	fiscalClient := backend.NewFiscalClient(cfg.FiscalDeviceURL, cfg.RequestTimeout, logger)

	var auditPublisher audit.Publisher = audit.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := audit.NewKafkaPublisher(cfg.AuditTopic, cfg.KafkaBrokers...)
		defer kafkaPublisher.Close()
		auditPublisher = kafkaPublisher
		logger.Info("audit trail enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	checkoutService := service.NewCheckoutService(
		gate,
		service.NewCartHandler(cartClient, cfg.RequestTimeout),
		service.NewPaymentHandler(paymentClient, cfg.RequestTimeout),
		service.NewPrinterHandler(printerClient, cfg.RequestTimeout),
		service.NewFiscalHandler(fiscalClient, cfg.RequestTimeout),
		auditPublisher,
		logger,
	)

	store := session.NewStore(session.TimerScheduler{}, cfg.AutoCloseDelay, logger)
	checkoutHandler := poshttp.NewCheckoutHandler(checkoutService, store, cfg.StrictCompliance, logger)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(poshttp.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout * 4))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(poshttp.CashierAuthMiddleware)
		checkoutHandler.Routes(r)
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: otelhttp.NewHandler(r, "pos-terminal"),
	}

	go func() {
		logger.Info("terminal listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down terminal...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("terminal stopped")
}
