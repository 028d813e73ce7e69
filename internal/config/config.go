// internal/config/config.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// MongoConfig groups the document-store connection settings. The timeout
// defaults (10s connect / 5s server selection / 45s socket) keep a cold
// serverless request from hanging on the driver's much larger defaults.
type MongoConfig struct {
	URI                    string        `mapstructure:"mongo_uri"`
	Database               string        `mapstructure:"mongo_db"`
	ConnectTimeout         time.Duration `mapstructure:"mongo_connect_timeout"`
	ServerSelectionTimeout time.Duration `mapstructure:"mongo_server_selection_timeout"`
	SocketTimeout          time.Duration `mapstructure:"mongo_socket_timeout"`

	// LazyConnect selects the per-request deployment mode: when true the
	// process starts without dialing Mongo and each request ensures the
	// connection itself (a failure yields a 503 for that request only).
	// When false, a startup connect failure is fatal.
	LazyConnect bool `mapstructure:"lazy_db_connect"`
}

// AuthConfig groups token and credential settings.
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// RateLimitConfig holds the request-throttling thresholds. Zero values are
// filled from env-sensitive defaults in applyEnvDefaults.
type RateLimitConfig struct {
	Window time.Duration `mapstructure:"rate_limit_window"`
	Max    int           `mapstructure:"rate_limit_max"`
}

// SMTPConfig configures the optional mailer. The mailer is a no-op until
// Host is set.
type SMTPConfig struct {
	Host     string `mapstructure:"smtp_host"`
	Port     int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"smtp_username"`
	Password string `mapstructure:"smtp_password"`
	From     string `mapstructure:"smtp_from"`
}

// Config holds the full configuration for the campushire service.
type Config struct {
	Env      string `mapstructure:"env"`       // "dev" | "prod"
	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error
	HTTPPort int    `mapstructure:"http_port"`

	Mongo     MongoConfig     `mapstructure:",squash"`
	Auth      AuthConfig      `mapstructure:",squash"`
	RateLimit RateLimitConfig `mapstructure:",squash"`
	SMTP      SMTPConfig      `mapstructure:",squash"`

	// CORSAllowedOrigins defaults to local dev frontends in env=dev and
	// must be set explicitly in env=prod.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`

	MaxRequestBodyBytes int64  `mapstructure:"max_request_body_bytes"`
	UploadDir           string `mapstructure:"upload_dir"`

	// RedisAddr enables the Redis-backed rate limiter for multi-instance
	// deployments; empty means the in-memory limiter is used.
	RedisAddr string `mapstructure:"redis_addr"`

	// TLSCertFile/TLSKeyFile enable HTTPS with operator-provided certs.
	// Both empty means plain HTTP, typically behind a terminating proxy.
	TLSCertFile string `mapstructure:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file"`
}

// Dump returns a pretty, redacted JSON string of the config for debugging.
// Never logs secrets; use at debug level only.
func (c Config) Dump() string {
	cp := c
	if cp.Auth.JWTSecret != "" {
		cp.Auth.JWTSecret = "[redacted]"
	}
	if cp.SMTP.Password != "" {
		cp.SMTP.Password = "[redacted]"
	}
	b, _ := json.MarshalIndent(cp, "", "  ")
	return string(b)
}

// Load merges defaults → config.* file(s) → env vars → explicit flags.
// Final precedence (highest wins): flags(explicit) > env > config > defaults.
func Load(logger *zap.Logger) (*Config, error) {
	// 0) Optionally load .env (safe: real env still wins over .env)
	if err := godotenv.Load(); err == nil && logger != nil {
		logger.Info("Loaded .env file")
	}

	// 1) Define flags (only *explicitly set* flags will override)
	pflag.String("env", "dev", `Runtime environment "dev"|"prod"`)
	pflag.String("log_level", "debug", "Log level")
	pflag.Int("http_port", 8080, "HTTP port")

	pflag.String("mongo_uri", "mongodb://localhost:27017", "MongoDB connection URI")
	pflag.String("mongo_db", "campushire", "MongoDB database name")
	pflag.String("mongo_connect_timeout", "10s", "Mongo connect timeout")
	pflag.String("mongo_server_selection_timeout", "5s", "Mongo server selection timeout")
	pflag.String("mongo_socket_timeout", "45s", "Mongo socket timeout")
	pflag.Bool("lazy_db_connect", false, "Skip the startup DB connect; each request ensures the connection")

	pflag.String("jwt_secret", "", "HMAC secret for access tokens")
	pflag.String("access_token_ttl", "24h", "Access token lifetime")

	pflag.String("rate_limit_window", "", "Rate limit window (e.g. \"1m\"); default depends on env")
	pflag.Int("rate_limit_max", 0, "Max requests per window per client; default depends on env")

	pflag.String("cors_allowed_origins", "", `JSON array of origins, e.g. '["https://app.example"]'`)

	pflag.Int64("max_request_body_bytes", 8<<20, "Max HTTP request body size in bytes (0 = unlimited)")
	pflag.String("upload_dir", "uploads", "Directory for uploaded files")
	pflag.String("redis_addr", "", "Optional Redis address for shared rate limiting")
	pflag.String("tls_cert_file", "", "TLS certificate file (HTTPS enabled when both cert and key are set)")
	pflag.String("tls_key_file", "", "TLS private key file")

	pflag.String("smtp_host", "", "SMTP host (mailer disabled when empty)")
	pflag.Int("smtp_port", 587, "SMTP port")
	pflag.String("smtp_username", "", "SMTP username")
	pflag.String("smtp_password", "", "SMTP password")
	pflag.String("smtp_from", "", "From address for outgoing mail")
	pflag.Parse()

	// 2) Viper + env
	v := viper.New()
	v.SetEnvPrefix("CAMPUSHIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Bind env for all keys so Unmarshal sees them.
	for _, k := range allKeys() {
		_ = v.BindEnv(k)
	}

	// 3) Optional config.* files (yaml|yml|json|toml)
	for _, ext := range [...]string{"yaml", "yml", "json", "toml"} {
		file := "config." + ext
		if _, err := os.Stat(file); err != nil {
			continue
		}
		b, err := os.ReadFile(file)
		if err != nil {
			if logger != nil {
				logger.Warn("cannot read config file", zap.String("file", file), zap.Error(err))
			}
			continue
		}
		v.SetConfigType(ext)
		if err := v.MergeConfig(bytes.NewReader(b)); err != nil {
			if logger != nil {
				logger.Warn("cannot decode config file", zap.String("file", file), zap.Error(err))
			}
			continue
		}
		if logger != nil {
			logger.Info("Loaded config file", zap.String("file", file))
		}
	}

	// 4) Defaults (lowest precedence)
	setDefaults(v)

	// 5) Apply *explicit* flags (highest precedence)
	pflag.CommandLine.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = v.BindPFlag(f.Name, f)
		}
	})

	// 6) Normalize list keys (accept JSON strings → []string)
	if err := normalizeListKeys(logger, v, "cors_allowed_origins"); err != nil {
		return nil, err
	}

	// 7) Build struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Parse durations
	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"mongo_connect_timeout", 10 * time.Second, &cfg.Mongo.ConnectTimeout},
		{"mongo_server_selection_timeout", 5 * time.Second, &cfg.Mongo.ServerSelectionTimeout},
		{"mongo_socket_timeout", 45 * time.Second, &cfg.Mongo.SocketTimeout},
		{"access_token_ttl", 24 * time.Hour, &cfg.Auth.AccessTokenTTL},
	}
	for _, d := range durations {
		dur, err := parseDurationFlexible(v.Get(d.key), d.def)
		if err != nil && logger != nil {
			logger.Warn("invalid duration; using default",
				zap.String("key", d.key),
				zap.Any("value", v.Get(d.key)),
				zap.Duration("default", d.def),
				zap.Error(err))
		}
		*d.dest = dur
	}
	if raw := v.Get("rate_limit_window"); raw != nil && raw != "" {
		dur, err := parseDurationFlexible(raw, 0)
		if err != nil && logger != nil {
			logger.Warn("invalid rate_limit_window; using env default",
				zap.Any("value", raw), zap.Error(err))
		}
		cfg.RateLimit.Window = dur
	}

	applyEnvDefaults(&cfg)

	// 8) Validate
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func allKeys() []string {
	return []string{
		"env", "log_level", "http_port",
		"mongo_uri", "mongo_db",
		"mongo_connect_timeout", "mongo_server_selection_timeout", "mongo_socket_timeout",
		"lazy_db_connect",
		"jwt_secret", "access_token_ttl",
		"rate_limit_window", "rate_limit_max",
		"cors_allowed_origins",
		"max_request_body_bytes", "upload_dir", "redis_addr",
		"tls_cert_file", "tls_key_file",
		"smtp_host", "smtp_port", "smtp_username", "smtp_password", "smtp_from",
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "debug")
	v.SetDefault("http_port", 8080)

	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db", "campushire")
	v.SetDefault("mongo_connect_timeout", "10s")
	v.SetDefault("mongo_server_selection_timeout", "5s")
	v.SetDefault("mongo_socket_timeout", "45s")
	v.SetDefault("lazy_db_connect", false)

	v.SetDefault("jwt_secret", "")
	v.SetDefault("access_token_ttl", "24h")

	// Rate limit and CORS defaults depend on env; see applyEnvDefaults.
	v.SetDefault("rate_limit_window", "")
	v.SetDefault("rate_limit_max", 0)
	v.SetDefault("cors_allowed_origins", []string{})

	v.SetDefault("max_request_body_bytes", int64(8<<20))
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("redis_addr", "")
	v.SetDefault("tls_cert_file", "")
	v.SetDefault("tls_key_file", "")

	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("smtp_from", "")
}

// applyEnvDefaults fills rate-limit thresholds and the CORS allow-list when
// they were not configured explicitly: dev is permissive (local frontends,
// generous limits), prod is strict.
func applyEnvDefaults(cfg *Config) {
	if cfg.RateLimit.Window <= 0 {
		if cfg.Env == "prod" {
			cfg.RateLimit.Window = 15 * time.Minute
		} else {
			cfg.RateLimit.Window = time.Minute
		}
	}
	if cfg.RateLimit.Max <= 0 {
		if cfg.Env == "prod" {
			cfg.RateLimit.Max = 100
		} else {
			cfg.RateLimit.Max = 600
		}
	}
	if len(cfg.CORSAllowedOrigins) == 0 && cfg.Env != "prod" {
		cfg.CORSAllowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
}

// normalizeListKeys coerces JSON-string values into []string for the given keys.
func normalizeListKeys(logger *zap.Logger, v *viper.Viper, keys ...string) error {
	for _, key := range keys {
		val := v.Get(key)
		switch t := val.(type) {
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				continue
			}
			var arr []string
			if err := json.Unmarshal([]byte(s), &arr); err != nil {
				return fmt.Errorf("config key %q expects a JSON array string, got %q: %w", key, s, err)
			}
			v.Set(key, arr)
		case []interface{}:
			arr := make([]string, 0, len(t))
			for _, e := range t {
				arr = append(arr, fmt.Sprint(e))
			}
			v.Set(key, arr)
		case []string, nil:
			// already correct or unset
		default:
			if logger != nil {
				logger.Warn("unexpected type for list key; expected JSON array/string",
					zap.String("key", key), zap.Any("value", t))
			}
		}
	}
	return nil
}

func validate(cfg Config) error {
	var missing []string
	var invalid []string

	if cfg.Env != "dev" && cfg.Env != "prod" {
		invalid = append(invalid, `env must be "dev" or "prod"`)
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = append(invalid, "http_port must be in 1..65535")
	}

	uri := strings.TrimSpace(cfg.Mongo.URI)
	if uri == "" {
		missing = append(missing, "CAMPUSHIRE_MONGO_URI (or --mongo_uri)")
	} else if !strings.HasPrefix(uri, "mongodb://") && !strings.HasPrefix(uri, "mongodb+srv://") {
		invalid = append(invalid, `mongo_uri must start with "mongodb://" or "mongodb+srv://"`)
	}
	if strings.TrimSpace(cfg.Mongo.Database) == "" {
		missing = append(missing, "CAMPUSHIRE_MONGO_DB (or --mongo_db)")
	}
	if cfg.Mongo.ConnectTimeout <= 0 || cfg.Mongo.ServerSelectionTimeout <= 0 || cfg.Mongo.SocketTimeout <= 0 {
		invalid = append(invalid, "mongo timeouts must be > 0")
	}

	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		invalid = append(invalid, "tls_cert_file and tls_key_file must be set together")
	}

	if cfg.Env == "prod" {
		if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
			missing = append(missing, "CAMPUSHIRE_JWT_SECRET (or --jwt_secret) in prod")
		}
		if len(cfg.CORSAllowedOrigins) == 0 {
			missing = append(missing, "CAMPUSHIRE_CORS_ALLOWED_ORIGINS (JSON array) in prod")
		}
		for _, o := range cfg.CORSAllowedOrigins {
			if o == "*" {
				invalid = append(invalid, `cors_allowed_origins cannot contain "*" in prod`)
				break
			}
		}
	}

	if cfg.Auth.AccessTokenTTL <= 0 {
		invalid = append(invalid, "access_token_ttl must be > 0")
	}
	if cfg.RateLimit.Window <= 0 || cfg.RateLimit.Max <= 0 {
		invalid = append(invalid, "rate_limit_window and rate_limit_max must be > 0")
	}
	if cfg.SMTP.Host != "" && strings.TrimSpace(cfg.SMTP.From) == "" {
		missing = append(missing, "CAMPUSHIRE_SMTP_FROM when smtp_host is set")
	}

	if len(missing) == 0 && len(invalid) == 0 {
		return nil
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(invalid, ", "))
	}
	return fmt.Errorf("configuration errors: %s", strings.Join(parts, " | "))
}
