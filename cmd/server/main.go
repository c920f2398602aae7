package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wardrobe-planner/internal/config"
	"github.com/iliyamo/wardrobe-planner/internal/database"
	"github.com/iliyamo/wardrobe-planner/internal/handler"
	"github.com/iliyamo/wardrobe-planner/internal/logger"
	"github.com/iliyamo/wardrobe-planner/internal/mail"
	"github.com/iliyamo/wardrobe-planner/internal/queue"
	"github.com/iliyamo/wardrobe-planner/internal/repository"
	"github.com/iliyamo/wardrobe-planner/internal/router"
	"github.com/iliyamo/wardrobe-planner/internal/service"
	"github.com/iliyamo/wardrobe-planner/internal/storage"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := openDB(cfg)
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("migration failed", "error", err)
	}
	if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
		logger.Warn("JWT_SECRET or REFRESH_TOKEN_SECRET missing; token endpoints will answer SERVER_CONFIGURATION_ERROR")
	} else if cfg.JWTSecret == cfg.RefreshSecret {
		logger.Warn("JWT_SECRET equals REFRESH_TOKEN_SECRET; token endpoints will answer SERVER_CONFIGURATION_ERROR")
	}

	store, static := openStore(ctx, cfg.Storage)
	sender := mailSender(ctx, cfg)

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	switch {
	case err != nil:
		logger.Warn("redis unavailable; using in-process rate limiting and no response cache", "error", err)
	case rdb == nil:
		logger.Info("redis disabled; using in-process rate limiting and no response cache")
	default:
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	garments := repository.NewGarmentRepo(db)
	seasons := repository.NewSeasonRepo(db)
	plans := repository.NewPlanRepo(db)

	tokenSvc := service.NewTokenService(users, tokens, service.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     time.Duration(cfg.AccessTTLMin) * time.Minute,
		RefreshTTL:    time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
	})
	accountSvc := service.NewAccountService(db, users, repository.NewConsentRepo(), garments, store, cfg.BcryptCost)
	verifySvc := service.NewVerificationService(db, users, repository.NewVerificationRepo(), sender,
		time.Duration(cfg.VerificationTTLHours)*time.Hour, cfg.BcryptCost, cfg.IsDevelopment())
	garmentSvc := service.NewGarmentService(db, garments, seasons, store)
	planSvc := service.NewPlanService(db, plans, garments)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, router.Handlers{
		Health:  handler.NewHealthHandler(db),
		Auth:    handler.NewAuthHandler(accountSvc, tokenSvc, verifySvc),
		Clothes: handler.NewClothesHandler(garmentSvc),
		Plan:    handler.NewPlanHandler(planSvc),
	}, router.Options{
		Auth:           tokenSvc,
		RateLimit:      config.LoadRateLimitConfig(),
		Cache:          config.LoadCacheConfig(),
		Redis:          rdb,
		AllowedOrigins: cfg.AllowedOrigins,
		StaticPrefix:   static.prefix,
		StaticDir:      static.dir,
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func openDB(cfg config.Config) *database.Handle {
	var (
		db  *database.Handle
		err error
	)
	if cfg.DBDriver == "sqlite3" {
		db, err = database.OpenSQLite(cfg.DBPath)
	} else {
		db, err = database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	if err != nil {
		logger.Fatal("failed to open database", "driver", cfg.DBDriver, "error", err)
	}
	return db
}

type staticMount struct{ prefix, dir string }

// openStore picks the bucket when one is configured and the local directory
// otherwise.  Local images are served by the API itself.
func openStore(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, staticMount) {
	if cfg.GCSBucket != "" {
		s, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSPublicRead)
		if err != nil {
			logger.Fatal("failed to open bucket", "bucket", cfg.GCSBucket, "error", err)
		}
		return s, staticMount{}
	}
	s, err := storage.NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	if err != nil {
		logger.Fatal("failed to open local storage", "dir", cfg.LocalDir, "error", err)
	}
	prefix := "/uploads"
	if u, err := url.Parse(cfg.PublicBaseURL); err == nil && u.Path != "" && u.Path != "/" {
		prefix = u.Path
	}
	return s, staticMount{prefix: prefix, dir: s.Dir()}
}

// mailSender returns the Sender used by the verification workflow.  With
// the queue enabled, requests go through RabbitMQ and a consumer in this
// process delivers them through Mailgun.
func mailSender(ctx context.Context, cfg config.Config) mail.Sender {
	mg := mail.NewMailgunSender(cfg.Mail)
	if mg == nil {
		logger.Warn("mailgun not configured; account mail is disabled")
		return mail.DisabledSender{}
	}
	if !cfg.Mail.QueueEnabled {
		return mg
	}
	go func() {
		if err := queue.StartMailConsumer(ctx, cfg.Mail.RabbitURL, mg); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("mail consumer stopped", "error", err)
		}
	}()
	return mail.NewQueueSender(queue.NewPublisher(cfg.Mail.RabbitURL))
}
