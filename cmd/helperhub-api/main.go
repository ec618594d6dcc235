// README: Entry point; loads config, wires stores and services, and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"helperhub/internal/config"
	httptransport "helperhub/internal/http"
	"helperhub/internal/infra"
	"helperhub/internal/modules/application"
	"helperhub/internal/modules/assignment"
	"helperhub/internal/modules/checkin"
	"helperhub/internal/modules/commission"
	"helperhub/internal/modules/dispute"
	"helperhub/internal/modules/order"
	"helperhub/internal/modules/payment"
	"helperhub/internal/modules/pricing"
	"helperhub/internal/modules/settlement"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(os.Stdout, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		logger.Error("HH_FIREBASE_PROJECT_ID is required")
		os.Exit(1)
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		logger.Error("firebase init", "err", err)
		os.Exit(1)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Error("db init", "err", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	pricingStore := pricing.NewStore()
	pricingSvc := pricing.NewService(dbPool, pricingStore)

	orderStore := order.NewStore()
	orderSvc := order.NewService(dbPool, orderStore, pricingSvc, logger)

	applicationStore := application.NewStore()
	applicationSvc := application.NewService(dbPool, applicationStore, orderStore, logger)

	resolver := assignment.NewResolver(applicationStore, orderStore)
	tokens := checkin.NewQRTokenStore(redisClient, cfg.CheckIn.QRTokenTTL())
	checkinSvc := checkin.NewService(dbPool, checkin.NewStore(), resolver, orderStore, applicationStore, tokens, logger)

	settlementStore := settlement.NewStore()
	teamStore := commission.NewTeamStore()
	settlementSvc := settlement.NewService(dbPool, settlementStore, teamStore, logger)

	disputeSvc := dispute.NewService(dbPool, dispute.NewStore(), orderStore, settlementStore, teamStore, logger)
	paymentSvc := payment.NewService(dbPool, payment.NewStore(), orderStore, logger)

	gin.SetMode(gin.ReleaseMode)
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Order:        orderSvc,
		Applications: applicationSvc,
		CheckIn:      checkinSvc,
		Pricing:      pricingSvc,
		Disputes:     disputeSvc,
		Settlement:   settlementSvc,
		Payments:     paymentSvc,
		Signature:    payment.NewSignatureVerifier(cfg.Payment.WebhookSecret),
		Verifier:     verifier,
		Logger:       logger,
	})
	if cfg.Payment.WebhookSecret == "" {
		logger.Warn("payment webhook signature verification disabled")
	}

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("http server listening", "addr", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server", "err", err)
		os.Exit(1)
	}
}
