package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ecochamps/ecochamps-service/internal/account"
	"github.com/ecochamps/ecochamps-service/internal/kv"
	"github.com/ecochamps/ecochamps-service/internal/platform/auth"
	"github.com/ecochamps/ecochamps-service/internal/platform/envconfig"
)

// Config encapsulates the runtime configuration for the EcoChamps service.
type Config struct {
	Port    string `validate:"required,numeric"`
	Storage StorageConfig
	Auth    AuthConfig
	Account AccountConfig
	Catalog CatalogConfig
	Learn   LearnConfig
}

// StorageConfig selects and tunes the key-value backend.
type StorageConfig struct {
	Backend             string `validate:"required,oneof=memory file firestore redis"`
	FilePath            string
	GCPProjectID        string
	FirestoreCollection string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int `validate:"gte=0"`
	RedisPrefix         string
}

// AuthConfig stores token issuing setup.
type AuthConfig struct {
	Mode     auth.Mode `validate:"required,oneof=noop hmac"`
	Secret   string
	TokenTTL time.Duration `validate:"gt=0"`
}

// AccountConfig tunes the record store.
type AccountConfig struct {
	SecretHashing  string `validate:"oneof=plain bcrypt"`
	BadgesOnCredit bool
}

// CatalogConfig points at an optional catalog file. Empty means the built-in catalog.
type CatalogConfig struct {
	Path string
}

// LearnConfig defines how lessons are generated.
type LearnConfig struct {
	APIKey          string
	Model           string `validate:"required"`
	MaxOutputTokens int    `validate:"gt=0"`
	UseVertex       bool
	Location        string
	Audience        string        `validate:"required"`
	CacheSize       int           `validate:"gt=0"`
	LessonTTL       time.Duration `validate:"gt=0"`
}

// Enabled reports whether enough is configured to call a model.
func (l LearnConfig) Enabled() bool {
	if l.UseVertex {
		return strings.TrimSpace(l.Location) != ""
	}
	return strings.TrimSpace(l.APIKey) != ""
}

// Load reads environment variables into Config with validation.
func Load() (Config, error) {
	cfg := Config{
		Port: envconfig.Get("PORT", "8080"),
		Storage: StorageConfig{
			Backend:             strings.ToLower(envconfig.Get("STORAGE_BACKEND", kv.BackendFile)),
			FilePath:            envconfig.Get("STORAGE_FILE_PATH", "ecochamps-data.json"),
			GCPProjectID:        envconfig.Get("GCP_PROJECT_ID", ""),
			FirestoreCollection: envconfig.Get("FIRESTORE_COLLECTION", "ecochamps_kv"),
			RedisAddr:           envconfig.Get("REDIS_ADDR", "localhost:6379"),
			RedisPassword:       envconfig.Get("REDIS_PASSWORD", ""),
			RedisDB:             envconfig.GetInt("REDIS_DB", 0),
			RedisPrefix:         envconfig.Get("REDIS_PREFIX", "ecochamps:"),
		},
		Auth: AuthConfig{
			Mode:     auth.Mode(strings.ToLower(envconfig.Get("AUTH_MODE", string(auth.ModeNoop)))),
			Secret:   envconfig.Get("AUTH_SECRET", ""),
			TokenTTL: envconfig.GetDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		},
		Account: AccountConfig{
			SecretHashing:  strings.ToLower(envconfig.Get("SECRET_HASHING", account.SecretsPlain)),
			BadgesOnCredit: envconfig.GetBool("BADGES_ON_CREDIT", false),
		},
		Catalog: CatalogConfig{
			Path: envconfig.Get("CATALOG_PATH", ""),
		},
		Learn: LearnConfig{
			APIKey:          resolveAPIKey(),
			Model:           envconfig.Get("GEMINI_MODEL", "gemini-2.5-flash"),
			MaxOutputTokens: envconfig.GetInt("LEARN_MAX_OUTPUT_TOKENS", 2048),
			UseVertex:       envconfig.GetBool("GOOGLE_GENAI_USE_VERTEXAI", false),
			Location:        envconfig.Get("GOOGLE_CLOUD_LOCATION", ""),
			Audience:        envconfig.Get("LEARN_AUDIENCE", "14-year-old student in India"),
			CacheSize:       envconfig.GetInt("LESSON_CACHE_SIZE", 1024),
			LessonTTL:       envconfig.GetDuration("LESSON_TTL", time.Hour),
		},
	}

	if err := envconfig.Validate(cfg); err != nil {
		return Config{}, err
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Storage.Backend {
	case kv.BackendFile:
		if strings.TrimSpace(cfg.Storage.FilePath) == "" {
			return fmt.Errorf("STORAGE_FILE_PATH is required when STORAGE_BACKEND=file")
		}
	case kv.BackendFirestore:
		if strings.TrimSpace(cfg.Storage.GCPProjectID) == "" {
			return fmt.Errorf("GCP_PROJECT_ID is required when STORAGE_BACKEND=firestore")
		}
	case kv.BackendRedis:
		if strings.TrimSpace(cfg.Storage.RedisAddr) == "" {
			return fmt.Errorf("REDIS_ADDR is required when STORAGE_BACKEND=redis")
		}
	}

	if cfg.Auth.Mode == auth.ModeHMAC && len(cfg.Auth.Secret) < 32 {
		return fmt.Errorf("AUTH_SECRET of at least 32 bytes is required when AUTH_MODE=hmac")
	}

	if cfg.Learn.UseVertex {
		if strings.TrimSpace(cfg.Storage.GCPProjectID) == "" {
			return fmt.Errorf("GCP_PROJECT_ID is required when GOOGLE_GENAI_USE_VERTEXAI=true")
		}
		if strings.TrimSpace(cfg.Learn.Location) == "" {
			return fmt.Errorf("GOOGLE_CLOUD_LOCATION is required when GOOGLE_GENAI_USE_VERTEXAI=true")
		}
	}
	return nil
}

func resolveAPIKey() string {
	if apiKey := envconfig.Get("GEMINI_API_KEY", ""); strings.TrimSpace(apiKey) != "" {
		return apiKey
	}
	return envconfig.Get("GOOGLE_API_KEY", "")
}
