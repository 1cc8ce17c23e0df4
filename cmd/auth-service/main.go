package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/daon-network/auth-service/internal/config"
	domainService "github.com/daon-network/auth-service/internal/domain/service"
	"github.com/daon-network/auth-service/internal/events/kafka"
	httpHandler "github.com/daon-network/auth-service/internal/handler/http"
	"github.com/daon-network/auth-service/internal/infrastructure/broadcast"
	"github.com/daon-network/auth-service/internal/infrastructure/database"
	"github.com/daon-network/auth-service/internal/infrastructure/database/postgres"
	"github.com/daon-network/auth-service/internal/infrastructure/email"
	"github.com/daon-network/auth-service/internal/infrastructure/ratelimit"
	"github.com/daon-network/auth-service/internal/infrastructure/security"
	"github.com/daon-network/auth-service/internal/service"
	"github.com/daon-network/auth-service/internal/utils/logger"
	"github.com/daon-network/auth-service/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("auth service exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(cfg.Database.DSN(), log); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	// Repositories.
	identityRepo := database.NewPgxIdentityRepository(pool)
	magicLinkRepo := database.NewPgxMagicLinkRepository(pool)
	tempSessionRepo := database.NewPgxTempSessionRepository(pool)
	totpSecretRepo := database.NewPgxTOTPSecretRepository(pool)
	backupCodeRepo := database.NewPgxBackupCodeRepository(pool)
	deviceRepo := database.NewPgxTrustedDeviceRepository(pool)
	refreshTokenRepo := database.NewPgxRefreshTokenRepository(pool)
	auditLogRepo := database.NewPgxAuditLogRepository(pool)

	// Infrastructure.
	vault, err := security.NewAESGCMVault(cfg.MFA.TOTPEncryptionKey)
	if err != nil {
		return fmt.Errorf("init secret vault: %w", err)
	}
	jwtManager, err := security.NewJWTManager(cfg.JWT)
	if err != nil {
		return fmt.Errorf("init jwt manager: %w", err)
	}
	hasher := security.NewArgon2Hasher(security.DefaultArgon2Params())
	limiter := ratelimit.NewRedisLimiter(redisClient)
	broadcaster := broadcast.NewRedisBroadcaster(redisClient)

	var sender email.Sender
	if cfg.Email.Enabled {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
	} else {
		sender = email.NewLogSender(logger.WithComponent(log, "email"))
	}

	var producer *kafka.Producer
	var publisher domainService.EventPublisher
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SecurityTopic, logger.WithComponent(log, "kafka"))
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	// Services.
	audit := domainService.NewAuditRecorder(auditLogRepo, publisher, logger.WithComponent(log, "audit"))
	magicLinks := domainService.NewMagicLinkService(magicLinkRepo, identityRepo, limiter, sender, cfg.MagicLink, logger.WithComponent(log, "magic_link"))
	tempSessions := domainService.NewTempSessionService(tempSessionRepo, cfg.MFA.TempSessionTTL, cfg.MFA.TempSessionAttempts, logger.WithComponent(log, "temp_session"))
	totp := domainService.NewTOTPService(cfg.MFA.IssuerName)
	backupCodes := domainService.NewBackupCodeService(hasher, cfg.MFA.BackupCodeLowWater)
	devices := domainService.NewDeviceService(deviceRepo, cfg.DeviceTrust, logger.WithComponent(log, "device"))
	tokens := service.NewTokenService(refreshTokenRepo, jwtManager, broadcaster, cfg.RefreshToken, logger.WithComponent(log, "token"))

	authService := service.NewAuthService(
		magicLinks, tempSessions, totp, backupCodes, devices, tokens, audit,
		identityRepo, totpSecretRepo, backupCodeRepo, deviceRepo,
		vault, cfg.MFA, logger.WithComponent(log, "auth"),
	)

	cleanup := service.NewCleanupService(magicLinkRepo, tempSessionRepo, deviceRepo, refreshTokenRepo, cfg.Cleanup, logger.WithComponent(log, "cleanup"))
	go cleanup.Run(ctx)

	router := httpHandler.SetupRouter(authService, jwtManager, log)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
