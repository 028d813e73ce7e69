package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Env:      "dev",
		LogLevel: "debug",
		HTTPPort: 8080,
		Mongo: MongoConfig{
			URI:                    "mongodb://localhost:27017",
			Database:               "campushire",
			ConnectTimeout:         10 * time.Second,
			ServerSelectionTimeout: 5 * time.Second,
			SocketTimeout:          45 * time.Second,
		},
		Auth:      AuthConfig{AccessTokenTTL: 24 * time.Hour},
		RateLimit: RateLimitConfig{Window: time.Minute, Max: 600},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validate(validConfig()); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidate_BadURIScheme(t *testing.T) {
	cfg := validConfig()
	cfg.Mongo.URI = "postgres://localhost"
	err := validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "mongo_uri") {
		t.Fatalf("expected mongo_uri error, got %v", err)
	}
}

func TestValidate_ProdRequiresSecretAndOrigins(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "prod"
	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for prod without jwt_secret/origins")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("error should mention JWT_SECRET: %v", err)
	}
	if !strings.Contains(err.Error(), "CORS_ALLOWED_ORIGINS") {
		t.Errorf("error should mention CORS_ALLOWED_ORIGINS: %v", err)
	}
}

func TestValidate_TLSFilesMustBePaired(t *testing.T) {
	cfg := validConfig()
	cfg.TLSCertFile = "/etc/campushire/cert.pem"
	err := validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "tls_cert_file") {
		t.Fatalf("expected tls pairing error, got %v", err)
	}

	cfg.TLSKeyFile = "/etc/campushire/key.pem"
	if err := validate(cfg); err != nil {
		t.Fatalf("validate with paired tls files: %v", err)
	}
}

func TestValidate_ProdRejectsWildcardOrigin(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "prod"
	cfg.Auth.JWTSecret = "s3cret"
	cfg.CORSAllowedOrigins = []string{"*"}
	err := validate(cfg)
	if err == nil || !strings.Contains(err.Error(), `"*"`) {
		t.Fatalf("expected wildcard origin error, got %v", err)
	}
}

func TestApplyEnvDefaults(t *testing.T) {
	t.Run("dev", func(t *testing.T) {
		cfg := Config{Env: "dev"}
		applyEnvDefaults(&cfg)
		if cfg.RateLimit.Window != time.Minute || cfg.RateLimit.Max != 600 {
			t.Errorf("dev rate limit = %v/%d", cfg.RateLimit.Window, cfg.RateLimit.Max)
		}
		if len(cfg.CORSAllowedOrigins) == 0 {
			t.Error("dev should default to localhost CORS origins")
		}
	})

	t.Run("prod", func(t *testing.T) {
		cfg := Config{Env: "prod"}
		applyEnvDefaults(&cfg)
		if cfg.RateLimit.Window != 15*time.Minute || cfg.RateLimit.Max != 100 {
			t.Errorf("prod rate limit = %v/%d", cfg.RateLimit.Window, cfg.RateLimit.Max)
		}
		if len(cfg.CORSAllowedOrigins) != 0 {
			t.Error("prod must not default CORS origins")
		}
	})

	t.Run("explicit values kept", func(t *testing.T) {
		cfg := Config{Env: "prod", RateLimit: RateLimitConfig{Window: time.Hour, Max: 5}}
		applyEnvDefaults(&cfg)
		if cfg.RateLimit.Window != time.Hour || cfg.RateLimit.Max != 5 {
			t.Error("explicit rate limit was overridden")
		}
	})
}

func TestParseDurationFlexible(t *testing.T) {
	tests := []struct {
		raw     interface{}
		want    time.Duration
		wantErr bool
	}{
		{"45s", 45 * time.Second, false},
		{"2m", 2 * time.Minute, false},
		{"120", 2 * time.Minute, false},
		{"", 10 * time.Second, false},
		{nil, 10 * time.Second, false},
		{30, 30 * time.Second, false},
		{"bogus", 10 * time.Second, true},
		{"-5s", 10 * time.Second, true},
	}

	for _, tt := range tests {
		got, err := parseDurationFlexible(tt.raw, 10*time.Second)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDurationFlexible(%v) err = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseDurationFlexible(%v) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestDump_RedactsSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "supersecret"
	cfg.SMTP.Password = "mailpass"

	out := cfg.Dump()
	if strings.Contains(out, "supersecret") || strings.Contains(out, "mailpass") {
		t.Error("Dump leaked a secret")
	}
	if !strings.Contains(out, "[redacted]") {
		t.Error("Dump should mark redacted fields")
	}
}
