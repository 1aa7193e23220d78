package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/handlers"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/config"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/credits"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/database"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/events"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/gallery"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/generator"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/observability"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/oidc"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/profiles"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/shadowauth"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/storage"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/webhook"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/logger"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/metrics"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: oidc=%v jwt=%v mongo=%v redis=%v kafka=%v shadow_auth=%s gallery=%s",
		cfg.OIDC.IssuerURL != "", cfg.JWT.Secret != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "",
		len(cfg.Kafka.Brokers) > 0, cfg.ShadowAuth.Mode, cfg.Gallery.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopTracing := observability.InitTracing(ctx, cfg.Tracing, cfg.Server.Environment, version)

	db, err := database.Open(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatalf("failed to migrate database: %v", err)
		}
	}

	checks := map[string]handlers.Check{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}

	var redisClient *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
		} else {
			logger.Infof("connected to Redis: %s", addr)
		}
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	verifier, err := oidc.FromConfig(ctx, cfg)
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	var publisher events.Publisher = events.LoggingPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)
		if err != nil {
			logger.Fatalf("kafka: %v", err)
		}
		defer kp.Close()
		publisher = kp
		logger.Infof("publishing domain events to Kafka %v", cfg.Kafka.Brokers)
	}

	tier := models.Tier(cfg.Credits.InitialTier)
	if !tier.Valid() {
		logger.Fatalf("CREDITS_INITIAL_TIER %q is not a known tier", cfg.Credits.InitialTier)
	}
	profileRepo := profiles.NewGormRepository(db)
	profileSvc := profiles.NewService(profileRepo, shadowSyncer(cfg, db), publisher, profiles.Defaults{
		Credits: cfg.Credits.InitialCredits,
		Tier:    tier,
	})
	ledger := credits.NewLedger(profileRepo, publisher)

	store, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
	if err != nil {
		logger.Fatalf("object storage: %v", err)
	}
	checks["storage"] = store.Ping

	var gen generator.Generator
	if cfg.Generator.APIToken != "" {
		rc, err := generator.NewReplicateClient(cfg.Generator, &http.Client{Timeout: cfg.Generator.Timeout})
		if err != nil {
			logger.Fatalf("generator: %v", err)
		}
		gen = rc
	} else {
		logger.Warn("GENERATOR_API_TOKEN not set; emoji generation is disabled")
	}

	galleryRepo, closeGallery := galleryRepository(ctx, cfg, db, checks)
	defer closeGallery()
	gallerySvc := gallery.NewService(galleryRepo, store, gen, ledger, publisher, gallery.Options{
		SignedURLTTL: cfg.MinIO.SignedURLTTL,
		DefaultLimit: cfg.Gallery.DefaultLimit,
		MaxLimit:     cfg.Gallery.MaxLimit,
	})

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	handlers.NewHealthHandler(checks).Register(r)
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Webhook.SigningSecret != "" {
		wv, err := webhook.NewVerifier(cfg.Webhook.SigningSecret, cfg.Webhook.Tolerance)
		if err != nil {
			logger.Fatalf("webhook: %v", err)
		}
		if redisClient == nil {
			logger.Warn("webhook deduplication disabled (no Redis)")
		}
		handlers.NewWebhookHandler(wv, webhook.NewDeduper(redisClient, cfg.Webhook.DedupTTL), profileSvc).Register(r)
	} else {
		logger.Warn("WEBHOOK_SIGNING_SECRET not set; identity webhook not registered")
	}

	handlers.API{
		Verifier:      verifier,
		Provisioner:   profileSvc,
		Gallery:       gallerySvc,
		Ledger:        ledger,
		AdminGrant:    cfg.Credits.AdminGrant,
		IsAdmin:       cfg.Admin.IsAdmin,
		GenerateLimit: generateLimiter(cfg, redisClient),
	}.Register(r)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting emojiforge API on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	if err := stopTracing(shutdownCtx); err != nil {
		logger.Warnf("tracing shutdown: %v", err)
	}
}

// shadowSyncer picks the directory that mirrors auth users. A nil directory
// makes every sync a no-op.
func shadowSyncer(cfg *config.Config, db *gorm.DB) *shadowauth.Syncer {
	var dir shadowauth.Directory
	switch cfg.ShadowAuth.Mode {
	case "gotrue":
		gd, err := shadowauth.NewGoTrueDirectory(cfg.ShadowAuth.AdminURL, cfg.ShadowAuth.ServiceKey, &http.Client{Timeout: 10 * time.Second})
		if err != nil {
			logger.Fatalf("shadow auth: %v", err)
		}
		dir = gd
	case "database":
		dir = shadowauth.NewDatabaseDirectory(db)
	case "", "disabled":
		logger.Info("shadow auth sync disabled")
	default:
		logger.Fatalf("unknown SHADOW_AUTH_MODE %q", cfg.ShadowAuth.Mode)
	}
	return shadowauth.NewSyncer(dir, cfg.ShadowAuth.PlaceholderDomain)
}

// galleryRepository returns the configured emoji metadata backend and a func
// releasing its resources.
func galleryRepository(ctx context.Context, cfg *config.Config, db *gorm.DB, checks map[string]handlers.Check) (gallery.Repository, func()) {
	if cfg.Gallery.Backend != "mongo" {
		return gallery.NewGormRepository(db), func() {}
	}
	if cfg.MongoDB.URI == "" {
		logger.Fatalf("GALLERY_BACKEND=mongo requires MONGODB_URI")
	}
	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
	if err != nil {
		logger.Fatalf("could not connect to MongoDB: %v", err)
	}
	repo := gallery.NewMongoRepository(client.Database(cfg.MongoDB.Database).Collection("emojis"))
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warnf("mongo gallery indexes: %v", err)
	}
	checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	logger.Infof("gallery backed by MongoDB database %s", cfg.MongoDB.Database)
	return repo, func() { _ = client.Disconnect(context.Background()) }
}

// generateLimiter throttles generation per subject; Redis-backed when
// configured so the limit holds across replicas.
func generateLimiter(cfg *config.Config, client *redis.Client) gin.HandlerFunc {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	if cfg.RateLimit.UseRedis && client != nil {
		win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		return middleware.RedisRateLimitMiddleware(client, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
	}
	return middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}
