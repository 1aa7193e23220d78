package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	MongoDB    MongoDBConfig
	Redis      RedisConfig
	OIDC       OIDCConfig
	JWT        JWTConfig
	MinIO      MinIOConfig
	Generator  GeneratorConfig
	ShadowAuth ShadowAuthConfig
	Webhook    WebhookConfig
	Credits    CreditsConfig
	Gallery    GalleryConfig
	RateLimit  RateLimitConfig
	Kafka      KafkaConfig
	CORS       CORSConfig
	Admin      AdminConfig
	Tracing    TracingConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig points at the relational store. URL accepts postgres:// DSNs
// or sqlite:<path> for local runs.
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	AutoMigrate bool
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type OIDCConfig struct {
	IssuerURL     string
	ClientID      string
	AllowInsecure bool
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	PublicBaseURL string
	SignedURLTTL  time.Duration
}

type GeneratorConfig struct {
	BaseURL        string
	APIToken       string
	ModelVersion   string
	PromptTemplate string
	NegativePrompt string
	PollInterval   time.Duration
	Timeout        time.Duration
}

// ShadowAuthConfig selects where shadow auth users are mirrored.
// Mode is one of "gotrue", "database" or "disabled".
type ShadowAuthConfig struct {
	Mode              string
	AdminURL          string
	ServiceKey        string
	PlaceholderDomain string
}

type WebhookConfig struct {
	SigningSecret string
	Tolerance     time.Duration
	DedupTTL      time.Duration
}

type CreditsConfig struct {
	InitialCredits int
	InitialTier    string
	AdminGrant     int
}

// GalleryConfig selects the emoji metadata backend: "postgres" or "mongo".
type GalleryConfig struct {
	Backend      string
	DefaultLimit int
	MaxLimit     int
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type AdminConfig struct {
	Subjects []string
}

// IsAdmin reports whether the external subject is in the admin allowlist.
func (a AdminConfig) IsAdmin(sub string) bool {
	for _, s := range a.Subjects {
		if s == sub {
			return true
		}
	}
	return false
}

// TracingConfig controls OpenTelemetry export. With Enabled set and no
// OTLPEndpoint, spans go to stdout.
type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	Insecure     bool
	SampleRatio  float64
}

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("DATABASE_MAX_CONNS", 10)
	v.SetDefault("DATABASE_AUTO_MIGRATE", true)
	v.SetDefault("MONGODB_DATABASE", "emojiforge")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	v.SetDefault("MINIO_BUCKET", "emojis")
	v.SetDefault("MINIO_SIGNED_URL_TTL", 3600)
	v.SetDefault("GENERATOR_BASE_URL", "https://api.replicate.com")
	v.SetDefault("GENERATOR_PROMPT_TEMPLATE", "A simple, cute emoji style illustration of %s, flat colors, minimalist design, white background")
	v.SetDefault("GENERATOR_NEGATIVE_PROMPT", "realistic, detailed, 3D, shading, gradient, photograph, complex")
	v.SetDefault("GENERATOR_POLL_INTERVAL_MS", 1000)
	v.SetDefault("GENERATOR_TIMEOUT", 120)
	v.SetDefault("SHADOW_AUTH_MODE", "database")
	v.SetDefault("SHADOW_AUTH_PLACEHOLDER_DOMAIN", "example.com")
	v.SetDefault("WEBHOOK_TOLERANCE", 300)
	v.SetDefault("WEBHOOK_DEDUP_TTL", 86400)
	v.SetDefault("CREDITS_INITIAL", 3)
	v.SetDefault("CREDITS_INITIAL_TIER", "free")
	v.SetDefault("CREDITS_ADMIN_GRANT", 10)
	v.SetDefault("GALLERY_BACKEND", "postgres")
	v.SetDefault("GALLERY_DEFAULT_LIMIT", 50)
	v.SetDefault("GALLERY_MAX_LIMIT", 200)
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 0.2)
	v.SetDefault("RATE_LIMIT_BURST", 3)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("KAFKA_TOPIC_PREFIX", "emojiforge.")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("OTEL_SERVICE_NAME", "emojiforge-api")
	v.SetDefault("OTEL_SAMPLER_RATIO", 0.1)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 180 * time.Second,
		},
		Database: DatabaseConfig{
			URL:         v.GetString("DATABASE_URL"),
			MaxConns:    v.GetInt("DATABASE_MAX_CONNS"),
			AutoMigrate: v.GetBool("DATABASE_AUTO_MIGRATE"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		OIDC: OIDCConfig{
			IssuerURL:     v.GetString("OIDC_ISSUER_URL"),
			ClientID:      v.GetString("OIDC_CLIENT_ID"),
			AllowInsecure: v.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
		},
		MinIO: MinIOConfig{
			Endpoint:      v.GetString("MINIO_ENDPOINT"),
			AccessKey:     v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:     os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:        v.GetBool("MINIO_USE_SSL"),
			Bucket:        v.GetString("MINIO_BUCKET"),
			PublicBaseURL: v.GetString("MINIO_PUBLIC_BASE_URL"),
			SignedURLTTL:  time.Duration(v.GetInt("MINIO_SIGNED_URL_TTL")) * time.Second,
		},
		Generator: GeneratorConfig{
			BaseURL:        v.GetString("GENERATOR_BASE_URL"),
			APIToken:       os.Getenv("GENERATOR_API_TOKEN"),
			ModelVersion:   v.GetString("GENERATOR_MODEL_VERSION"),
			PromptTemplate: v.GetString("GENERATOR_PROMPT_TEMPLATE"),
			NegativePrompt: v.GetString("GENERATOR_NEGATIVE_PROMPT"),
			PollInterval:   time.Duration(v.GetInt("GENERATOR_POLL_INTERVAL_MS")) * time.Millisecond,
			Timeout:        time.Duration(v.GetInt("GENERATOR_TIMEOUT")) * time.Second,
		},
		ShadowAuth: ShadowAuthConfig{
			Mode:              strings.ToLower(v.GetString("SHADOW_AUTH_MODE")),
			AdminURL:          v.GetString("SHADOW_AUTH_ADMIN_URL"),
			ServiceKey:        os.Getenv("SHADOW_AUTH_SERVICE_KEY"),
			PlaceholderDomain: v.GetString("SHADOW_AUTH_PLACEHOLDER_DOMAIN"),
		},
		Webhook: WebhookConfig{
			SigningSecret: os.Getenv("WEBHOOK_SIGNING_SECRET"),
			Tolerance:     time.Duration(v.GetInt("WEBHOOK_TOLERANCE")) * time.Second,
			DedupTTL:      time.Duration(v.GetInt("WEBHOOK_DEDUP_TTL")) * time.Second,
		},
		Credits: CreditsConfig{
			InitialCredits: v.GetInt("CREDITS_INITIAL"),
			InitialTier:    v.GetString("CREDITS_INITIAL_TIER"),
			AdminGrant:     v.GetInt("CREDITS_ADMIN_GRANT"),
		},
		Gallery: GalleryConfig{
			Backend:      strings.ToLower(v.GetString("GALLERY_BACKEND")),
			DefaultLimit: v.GetInt("GALLERY_DEFAULT_LIMIT"),
			MaxLimit:     v.GetInt("GALLERY_MAX_LIMIT"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			TopicPrefix: v.GetString("KAFKA_TOPIC_PREFIX"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Admin: AdminConfig{
			Subjects: splitList(v.GetString("ADMIN_SUBJECTS")),
		},
		Tracing: TracingConfig{
			Enabled:      v.GetBool("OTEL_ENABLED"),
			ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			OTLPHeaders:  splitPairs(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
			Insecure:     v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
			SampleRatio:  clampRatio(v.GetFloat64("OTEL_SAMPLER_RATIO")),
		},
	}

	if cfg.Database.URL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitPairs parses "k1=v1,k2=v2"; malformed entries are skipped.
func splitPairs(raw string) map[string]string {
	out := map[string]string{}
	for _, part := range splitList(raw) {
		k, val, ok := strings.Cut(part, "=")
		k, val = strings.TrimSpace(k), strings.TrimSpace(val)
		if !ok || k == "" || val == "" {
			continue
		}
		out[k] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func clampRatio(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
