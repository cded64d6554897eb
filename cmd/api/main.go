package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bryanwahyu/scamguard/internal/application"
	appanalysis "github.com/bryanwahyu/scamguard/internal/application/analysis"
	"github.com/bryanwahyu/scamguard/internal/application/session"
	"github.com/bryanwahyu/scamguard/internal/config"
	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
	"github.com/bryanwahyu/scamguard/internal/infra/ai/fake"
	"github.com/bryanwahyu/scamguard/internal/infra/ai/gemini"
	"github.com/bryanwahyu/scamguard/internal/infra/ai/openai"
	"github.com/bryanwahyu/scamguard/internal/infra/cache"
	mysqlp "github.com/bryanwahyu/scamguard/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/scamguard/internal/infra/db/postgres"
	"github.com/bryanwahyu/scamguard/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/scamguard/internal/infra/storage"
	"github.com/bryanwahyu/scamguard/internal/middleware"
	"github.com/bryanwahyu/scamguard/internal/views"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.WithError(err).Fatal("config load error")
	}
	if lvl, err := log.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(lvl)
	}
	logger := log.StandardLogger()

	ctx := context.Background()

	model, err := newModel(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("model init error")
	}

	svc := &appanalysis.Service{
		Model:      model,
		Normalizer: domain.NewNormalizer(cfg.AI.LenientParse),
		CacheTTL:   cfg.Redis.TTL,
		Clock:      application.SystemClock{},
		Log:        logger,
	}
	checks := map[string]middleware.HealthChecker{}

	if cfg.Database.Driver != "" {
		db, err := openDatabase(ctx, cfg, svc)
		if err != nil {
			logger.WithError(err).WithField("driver", cfg.Database.Driver).Fatal("database init error")
		}
		defer db.Close()
		checks["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			logger.WithError(err).Fatal("minio init error")
		}
		svc.Images = store
	}

	if cfg.Redis.Enabled {
		vc := cache.NewVerdictCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer vc.Close()
		if err := vc.Ping(ctx); err != nil {
			logger.WithError(err).Warn("redis not reachable, verdicts will not be cached until it is")
		}
		svc.Cache = vc
		checks["redis"] = middleware.CheckFunc(vc.Ping)
	}

	sessions := session.NewManager(svc, session.Options{
		TTL:         cfg.Session.TTL,
		ScanTimeout: cfg.AI.Timeout,
		Log:         logger,
	})

	renderer, err := views.New()
	if err != nil {
		logger.WithError(err).Fatal("template parse error")
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RatePerSecond)
	defer limiter.Close()

	handler := httpserver.NewRouter(httpserver.Deps{
		Analyses:       svc,
		Sessions:       sessions,
		Views:          renderer,
		Log:            logger,
		Limiter:        limiter,
		Health:         checks,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		CORSOrigins:    cfg.Server.CORSOrigins,
		APIKeys:        cfg.Server.APIKeys,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AI.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(log.Fields{"addr": addr, "provider": cfg.AI.Provider}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.WithError(err).Warn("shutdown error")
	}
	if err := sessions.Shutdown(ctx2); err != nil {
		logger.WithError(err).Warn("in-flight scans did not finish")
	}
}

func newModel(ctx context.Context, cfg *config.Config) (domain.Model, error) {
	switch cfg.AI.Provider {
	case "openai":
		return openai.NewClient(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL), nil
	case "fake":
		return fake.New(""), nil
	default:
		return gemini.NewClient(ctx, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL, &http.Client{Timeout: cfg.AI.Timeout})
	}
}

// openDatabase connects, migrates and attaches the history repositories.
func openDatabase(ctx context.Context, cfg *config.Config, svc *appanalysis.Service) (*sql.DB, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		if err := postgresp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		svc.Records = postgresp.NewAnalysisRepository(db)
		svc.Failures = postgresp.NewFailureRepository(db)
		return db, nil
	default:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		if err := mysqlp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		svc.Records = mysqlp.NewAnalysisRepository(db)
		svc.Failures = mysqlp.NewFailureRepository(db)
		return db, nil
	}
}
