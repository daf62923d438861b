package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"furnish-backend/internal/config"
	"furnish-backend/internal/env"
	"furnish-backend/internal/infrastructure/e2"
	"furnish-backend/internal/infrastructure/redisstore"
	"furnish-backend/internal/infrastructure/repo"
	"furnish-backend/internal/logging"
	"furnish-backend/internal/server"
	"furnish-backend/internal/usecase"

	"github.com/google/uuid"
)

func main() {
	if err := env.Load(".env.local", ".env"); err != nil {
		fmt.Fprintln(os.Stderr, "env:", err)
		os.Exit(1)
	}
	envDefaults := config.EnvDefaults()

	envName := flag.String("env", envDefaults.Env, "")
	port := flag.Int("port", envDefaults.Port, "")
	dbDriver := flag.String("db-driver", envDefaults.DBDriver, "postgres or sqlite")
	dbDSN := flag.String("db-dsn", envDefaults.DBDSN, "")
	jwtSecret := flag.String("jwt-secret", envDefaults.JWTSecret, "")
	logJSON := flag.Bool("log-json", envDefaults.LogJSON, "")
	logLevel := flag.String("log-level", envDefaults.LogLevel, "")
	redisAddr := flag.String("redis", envDefaults.RedisAddr, "redis address for webhook dedupe")
	stockPolicy := flag.String("stock-policy", envDefaults.StockPolicy, "reserve or advisory")

	flag.Parse()

	cfg := envDefaults
	cfg.Env = *envName
	cfg.Port = *port
	cfg.DBDriver = *dbDriver
	cfg.DBDSN = *dbDSN
	cfg.JWTSecret = *jwtSecret
	cfg.LogJSON = *logJSON
	cfg.LogLevel = *logLevel
	cfg.RedisAddr = *redisAddr
	cfg.StockPolicy = *stockPolicy

	log := logging.New(os.Stdout, cfg.LogJSON, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repo.Open(repo.Options{Driver: cfg.DBDriver, DSN: cfg.DBDSN, Logger: log})
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	var events usecase.EventLog
	if cfg.RedisAddr != "" {
		rl, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.WebhookTTL)
		if err != nil {
			return err
		}
		defer rl.Close()
		events = rl
	} else {
		events = repo.NewMemoryEventLog(cfg.WebhookTTL)
	}

	var gateway usecase.Gateway
	if cfg.E2.Enabled() {
		client, err := e2.NewClient(e2.Config{
			BaseURL:      cfg.E2.BaseURL,
			ClientID:     cfg.E2.ClientID,
			ClientSecret: cfg.E2.ClientSecret,
		})
		if err != nil {
			return err
		}
		gateway = client
	} else {
		log.Warn("e2 credentials missing, mobile money payments disabled")
	}
	if cfg.E2.WebhookSecret == "" {
		log.Warn("E2_WEBHOOK_SECRET not set, webhook accepts unauthenticated callbacks for recorded references only")
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("FURNISH_JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}
	policy, _ := usecase.ParseStockPolicy(cfg.StockPolicy)

	shipping := &usecase.ShippingService{Store: store, Log: log}
	coupons := &usecase.CouponService{Store: store}
	orders := &usecase.OrderService{Store: store, Shipping: shipping, Coupons: coupons, StockPolicy: policy, Log: log}
	svc := server.Services{
		Auth:     &usecase.AuthService{Store: store, JWTSecret: secret},
		Accounts: &usecase.AccountService{Store: store},
		Catalog:  &usecase.CatalogService{Store: store},
		Orders:   orders,
		Coupons:  coupons,
		Shipping: shipping,
		Payments: &usecase.PaymentService{
			Store:   store,
			Gateway: gateway,
			WalletIDs: map[e2.Provider]string{
				e2.ProviderMpesa: cfg.E2.MpesaWallet,
				e2.ProviderEmola: cfg.E2.EmolaWallet,
			},
			WebhookSecret: cfg.E2.WebhookSecret,
			Events:        events,
			Orders:        orders,
			Log:           log,
		},
		Ping: store.Ping,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.New(cfg, svc, log).Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr, "env", cfg.Env, "db", cfg.DBDriver, "stock_policy", policy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
