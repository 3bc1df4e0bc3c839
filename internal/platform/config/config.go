package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "JOJO"

// Config is the full process configuration.
type Config struct {
	Server       Server
	Auth         Auth
	Mongo        Mongo
	Redis        Redis
	Kafka        Kafka
	Email        Email
	SMS          SMS
	Storage      Storage
	Verification Verification
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Env             string
	BodyLimitBytes  int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	TrustedProxies  []string
	ThrottlePerSec  float64
}

// IsDevelopment reports whether console/in-memory fallbacks are acceptable.
func (s Server) IsDevelopment() bool {
	return s.Env == "development" || s.Env == "test"
}

// Auth holds bearer token validation settings.
type Auth struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
	TokenTTL      time.Duration
}

type Mongo struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Kafka struct {
	Brokers    []string
	AuditTopic string
}

// Email configures the Resend sender. An empty APIKey selects the console sender.
type Email struct {
	APIKey string
	From   string
}

// SMS configures the Termii sender. An empty APIKey selects the console sender.
type SMS struct {
	APIKey   string
	SenderID string
	BaseURL  string
	Timeout  time.Duration
}

// Storage configures Azure Blob storage. An empty AccountName selects the in-memory store.
type Storage struct {
	AccountName string
	AccountKey  string
	Container   string
	URLTTL      time.Duration
}

// Verification holds the workflow tunables.
type Verification struct {
	CodeTTL          time.Duration
	CodeMaxAttempts  int
	SendLimit        int
	SendWindow       time.Duration
	UploadMaxBytes   int64
	ConflictRetries  int
	BreakerThreshold int
	BreakerCooldown  time.Duration
	// AuditBuffer queues audit events off the request path when positive.
	AuditBuffer int
}

// Load reads .env (when present) and JOJO_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromViper(newViper())
}

// Defaults returns the development configuration without consulting .env.
// JOJO_* variables still apply.
func Defaults() *Config {
	cfg, err := FromViper(newViper())
	if err != nil {
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetTypeByDefaultValue(true)

	v.SetDefault("addr", ":8080")
	v.SetDefault("env", "development")
	v.SetDefault("body_limit_bytes", int64(12<<20))
	v.SetDefault("read_timeout", 15*time.Second)
	v.SetDefault("write_timeout", 60*time.Second)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("trusted_proxies", []string{})
	v.SetDefault("throttle_per_sec", 20.0)

	v.SetDefault("jwt_signing_key", "")
	v.SetDefault("jwt_issuer", "codingjojo")
	v.SetDefault("jwt_audience", "codingjojo-api")
	v.SetDefault("token_ttl", 15*time.Minute)

	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_database", "codingjojo")
	v.SetDefault("mongo_timeout", 10*time.Second)

	v.SetDefault("redis_url", "")
	v.SetDefault("redis_pool_size", 10)
	v.SetDefault("redis_min_idle_conns", 2)
	v.SetDefault("redis_dial_timeout", 5*time.Second)
	v.SetDefault("redis_read_timeout", 3*time.Second)
	v.SetDefault("redis_write_timeout", 3*time.Second)

	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("kafka_audit_topic", "instructor-verification-audit")

	v.SetDefault("resend_api_key", "")
	v.SetDefault("email_from", "Coding Jojo <verify@codingjojo.com>")

	v.SetDefault("termii_api_key", "")
	v.SetDefault("termii_sender_id", "CodingJojo")
	v.SetDefault("termii_base_url", "https://api.ng.termii.com")
	v.SetDefault("termii_timeout", 10*time.Second)

	v.SetDefault("azure_account_name", "")
	v.SetDefault("azure_account_key", "")
	v.SetDefault("azure_container", "instructor-verifications")
	v.SetDefault("storage_url_ttl", time.Hour)

	v.SetDefault("code_ttl", 10*time.Minute)
	v.SetDefault("code_max_attempts", 5)
	v.SetDefault("code_send_limit", 3)
	v.SetDefault("code_send_window", 15*time.Minute)
	v.SetDefault("upload_max_bytes", int64(10<<20))
	v.SetDefault("conflict_retries", 3)
	v.SetDefault("breaker_threshold", 5)
	v.SetDefault("breaker_cooldown", 30*time.Second)
	v.SetDefault("audit_buffer", 0)

	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: Server{
			Addr:            v.GetString("addr"),
			Env:             strings.ToLower(v.GetString("env")),
			BodyLimitBytes:  v.GetInt64("body_limit_bytes"),
			ReadTimeout:     v.GetDuration("read_timeout"),
			WriteTimeout:    v.GetDuration("write_timeout"),
			RequestTimeout:  v.GetDuration("request_timeout"),
			ShutdownTimeout: v.GetDuration("shutdown_timeout"),
			TrustedProxies:  splitList(v.GetStringSlice("trusted_proxies")),
			ThrottlePerSec:  v.GetFloat64("throttle_per_sec"),
		},
		Auth: Auth{
			JWTSigningKey: v.GetString("jwt_signing_key"),
			Issuer:        v.GetString("jwt_issuer"),
			Audience:      v.GetString("jwt_audience"),
			TokenTTL:      v.GetDuration("token_ttl"),
		},
		Mongo: Mongo{
			URI:      v.GetString("mongo_uri"),
			Database: v.GetString("mongo_database"),
			Timeout:  v.GetDuration("mongo_timeout"),
		},
		Redis: Redis{
			URL:          v.GetString("redis_url"),
			PoolSize:     v.GetInt("redis_pool_size"),
			MinIdleConns: v.GetInt("redis_min_idle_conns"),
			DialTimeout:  v.GetDuration("redis_dial_timeout"),
			ReadTimeout:  v.GetDuration("redis_read_timeout"),
			WriteTimeout: v.GetDuration("redis_write_timeout"),
		},
		Kafka: Kafka{
			Brokers:    splitList(v.GetStringSlice("kafka_brokers")),
			AuditTopic: v.GetString("kafka_audit_topic"),
		},
		Email: Email{
			APIKey: v.GetString("resend_api_key"),
			From:   v.GetString("email_from"),
		},
		SMS: SMS{
			APIKey:   v.GetString("termii_api_key"),
			SenderID: v.GetString("termii_sender_id"),
			BaseURL:  v.GetString("termii_base_url"),
			Timeout:  v.GetDuration("termii_timeout"),
		},
		Storage: Storage{
			AccountName: v.GetString("azure_account_name"),
			AccountKey:  v.GetString("azure_account_key"),
			Container:   v.GetString("azure_container"),
			URLTTL:      v.GetDuration("storage_url_ttl"),
		},
		Verification: Verification{
			CodeTTL:          v.GetDuration("code_ttl"),
			CodeMaxAttempts:  v.GetInt("code_max_attempts"),
			SendLimit:        v.GetInt("code_send_limit"),
			SendWindow:       v.GetDuration("code_send_window"),
			UploadMaxBytes:   v.GetInt64("upload_max_bytes"),
			ConflictRetries:  v.GetInt("conflict_retries"),
			BreakerThreshold: v.GetInt("breaker_threshold"),
			BreakerCooldown:  v.GetDuration("breaker_cooldown"),
			AuditBuffer:      v.GetInt("audit_buffer"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot run outside development.
func (c *Config) Validate() error {
	if c.Auth.JWTSigningKey == "" {
		if !c.Server.IsDevelopment() {
			return errors.New("JOJO_JWT_SIGNING_KEY is required outside development")
		}
		c.Auth.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	if c.Server.IsDevelopment() {
		return nil
	}
	if c.Mongo.URI == "" {
		return errors.New("JOJO_MONGO_URI is required outside development")
	}
	if c.Redis.URL == "" {
		return errors.New("JOJO_REDIS_URL is required outside development")
	}
	if c.Verification.UploadMaxBytes <= 0 {
		return errors.New("JOJO_UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}

// splitList accepts both repeated values and a single comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
