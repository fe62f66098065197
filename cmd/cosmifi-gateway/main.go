package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/cosmifi/gateway/adapters/events"
	"github.com/cosmifi/gateway/adapters/identity"
	"github.com/cosmifi/gateway/adapters/store"
	"github.com/cosmifi/gateway/adapters/tokenizer"
	"github.com/cosmifi/gateway/adapters/verifier"
	"github.com/cosmifi/gateway/internal/config"
	"github.com/cosmifi/gateway/internal/logger"
	"github.com/cosmifi/gateway/ports"
	"github.com/cosmifi/gateway/service"
	httptransport "github.com/cosmifi/gateway/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   true,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("gateway stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	wmLogger := logger.NewWatermillAdapter(zl)

	var (
		tokenStore ports.RevocationStore
		publisher  message.Publisher
	)

	if cfg.Redis.URL != "" {
		// Parse Redis URL and create client
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach Redis: %w", err)
		}

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			wmLogger,
		)
		if err != nil {
			return fmt.Errorf("failed to create Redis publisher: %w", err)
		}
		tokenStore = store.NewRedisStore(redisClient)
	} else {
		zl.Warn("redis.url not set; revocations and events stay in this process")
		tokenStore = store.NewMemoryStore()
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	}
	defer publisher.Close()

	tok, err := tokenizer.NewJWTTokenizer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, tokenStore)
	if err != nil {
		return fmt.Errorf("failed to create tokenizer: %w", err)
	}

	var identityProvider ports.IdentityProvider = tok
	if cfg.Auth.IdentityProvider == config.ProviderSupabase {
		identityProvider = identity.NewSupabaseProvider(cfg.Supabase.URL, cfg.Supabase.AnonKey, nil)
	}

	ethVerifier := verifier.NewEthVerifier()
	eventPub := events.NewWatermillPublisher(publisher, cfg.Events.TopicPrefix)

	gate := service.NewGate(ethVerifier, identityProvider, service.GatePolicy{
		RequireSignature: cfg.Auth.RequireSignature,
		MaxMessageAge:    cfg.Auth.MaxMessageAge,
	}, zl)
	authService := service.NewAuthService(ethVerifier, tok, tok, eventPub, zl)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	router := httptransport.SetupRouter(httptransport.RouterConfig{
		Gate:        gate,
		AuthService: authService,
		Logger:      zl,
		MetricsPath: metricsPath,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("gateway listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("identity_provider", cfg.Auth.IdentityProvider),
			zap.Bool("require_signature", cfg.Auth.RequireSignature),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zl.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
