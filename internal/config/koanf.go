package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/heavenlydemon269/vibelist/engine"
	"github.com/heavenlydemon269/vibelist/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "VIBELIST_"

// PathEnvVar overrides the config file path.
const PathEnvVar = "VIBELIST_CONFIG"

// DefaultPaths lists the paths where config files are searched in order of priority.
var DefaultPaths = []string{
	"vibelist.yaml",
	"vibelist.yml",
	"/etc/vibelist/config.yaml",
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Snapshot: SnapshotConfig{
			URI: "./snapshot",
		},
		Encoder: EncoderConfig{
			Backend:   "openai",
			CacheSize: 1024,
			OpenAI: OpenAIConfig{
				Model:             "text-embedding-3-small",
				Dimensions:        1536,
				RequestsPerSecond: 50,
				Breaker:           true,
			},
			LlamaCpp: LlamaCppConfig{
				ContextSize: 512,
			},
			Hashing: HashingConfig{
				Dimension: 256,
			},
		},
		Engine: EngineConfig{
			Policy: engine.PolicySingleShot.String(),
			Margin: engine.DefaultMargin,
		},
		Index: IndexConfig{
			Backend: "flat",
			PGVector: PGVectorConfig{
				Table: "track_embeddings",
			},
		},
		Sessions: SessionsConfig{
			Backend: "memory",
			TTL:     24 * time.Hour,
			Table:   "vibelist_sessions",
		},
		MusicService: MusicServiceConfig{
			Backend: "spotify",
			Spotify: SpotifyConfig{
				RequestsPerSecond: 5,
			},
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       120,
			MaxConcurrent:   64,
			QueueTimeout:    5 * time.Second,
			MaxCount:        100,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads configuration from defaults, the YAML file at path (or the
// first of DefaultPaths that exists when path is empty) and the environment,
// then validates it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Logging.Output = os.Stderr

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransform maps VIBELIST_SERVER__ADDR to server.addr.
func envTransform(key string) string {
	if key == PathEnvVar {
		return ""
	}
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the settings each backend needs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	var errs []error
	switch c.Encoder.Backend {
	case "openai":
		if c.Encoder.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("encoder.openai.api_key is required"))
		}
	case "llamacpp":
		if c.Encoder.LlamaCpp.ModelFile == "" {
			errs = append(errs, errors.New("encoder.llamacpp.model_file is required"))
		}
	case "hashing":
		if c.Encoder.Hashing.Dimension <= 0 {
			errs = append(errs, errors.New("encoder.hashing.dimension must be positive"))
		}
	}
	if c.Index.Backend == "pgvector" && c.Index.PGVector.DSN == "" {
		errs = append(errs, errors.New("index.pgvector.dsn is required"))
	}
	if c.Sessions.Backend == "dynamodb" && c.Sessions.Table == "" {
		errs = append(errs, errors.New("sessions.table is required"))
	}
	if c.MusicService.Backend == "spotify" {
		s := c.MusicService.Spotify
		if s.ClientID == "" || s.RefreshToken == "" {
			errs = append(errs, errors.New("music_service.spotify.client_id and refresh_token are required"))
		}
	}
	if strings.HasPrefix(c.Snapshot.URI, "minio://") && c.Snapshot.Minio.Endpoint == "" {
		errs = append(errs, errors.New("snapshot.minio.endpoint is required for minio:// URIs"))
	}
	return errors.Join(errs...)
}
