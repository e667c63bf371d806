// Package config loads vibelist binary configuration.
//
// Sources are layered with koanf: built-in defaults, then an optional YAML
// file, then VIBELIST_* environment variables. Nested keys are separated by a
// double underscore in the environment:
//
//	VIBELIST_SERVER__ADDR=:9090
//	VIBELIST_ENCODER__OPENAI__API_KEY=sk-...
package config

import (
	"time"

	"github.com/heavenlydemon269/vibelist/internal/logging"
)

// Config is the complete binary configuration.
type Config struct {
	Snapshot     SnapshotConfig     `koanf:"snapshot"`
	Encoder      EncoderConfig      `koanf:"encoder"`
	Engine       EngineConfig       `koanf:"engine"`
	Index        IndexConfig        `koanf:"index"`
	Sessions     SessionsConfig     `koanf:"sessions"`
	MusicService MusicServiceConfig `koanf:"music_service"`
	Server       ServerConfig       `koanf:"server"`
	Logging      logging.Config     `koanf:"logging"`
}

// SnapshotConfig locates the catalog and index.
type SnapshotConfig struct {
	// URI is a local directory or an s3://, minio:// or gs:// bucket/prefix.
	URI string `koanf:"uri" validate:"required"`

	// CatalogName, IndexName and Table apply to snapshots without a manifest.
	CatalogName string `koanf:"catalog_name"`
	IndexName   string `koanf:"index_name"`
	Table       string `koanf:"table"`
	TempDir     string `koanf:"temp_dir"`

	Minio MinioConfig `koanf:"minio"`
	// GCSCredentialsFile is used for gs:// URIs. Empty means application
	// default credentials.
	GCSCredentialsFile string `koanf:"gcs_credentials_file"`
}

// MinioConfig reaches a MinIO endpoint for minio:// URIs.
type MinioConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Secure    bool   `koanf:"secure"`
}

// EncoderConfig selects the embedding backend.
type EncoderConfig struct {
	Backend string `koanf:"backend" validate:"required,oneof=openai llamacpp hashing"`

	// CacheSize is the number of vibe embeddings kept in memory. 0 disables the cache.
	CacheSize     int `koanf:"cache_size" validate:"gte=0"`
	MaxInputRunes int `koanf:"max_input_runes" validate:"gte=0"`

	OpenAI   OpenAIConfig   `koanf:"openai"`
	LlamaCpp LlamaCppConfig `koanf:"llamacpp"`
	Hashing  HashingConfig  `koanf:"hashing"`
}

// OpenAIConfig configures an OpenAI-compatible embeddings API.
type OpenAIConfig struct {
	APIKey            string  `koanf:"api_key"`
	BaseURL           string  `koanf:"base_url" validate:"omitempty,url"`
	Model             string  `koanf:"model"`
	Dimensions        int     `koanf:"dimensions" validate:"gte=0"`
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
	Breaker           bool    `koanf:"breaker"`
}

// LlamaCppConfig configures the in-process llama.cpp encoder.
type LlamaCppConfig struct {
	LibPath     string `koanf:"lib_path"`
	ModelFile   string `koanf:"model_file"`
	ContextSize int    `koanf:"context_size" validate:"gte=0"`
	GPULayers   int    `koanf:"gpu_layers" validate:"gte=0"`
}

// HashingConfig configures the model-free hashing encoder.
type HashingConfig struct {
	Dimension int `koanf:"dimension" validate:"gte=0"`
}

// EngineConfig tunes oversampling.
type EngineConfig struct {
	Policy string `koanf:"policy" validate:"oneof=single-shot adaptive"`
	Margin int    `koanf:"margin" validate:"gte=0"`
}

// IndexConfig selects where vectors are searched.
type IndexConfig struct {
	Backend string `koanf:"backend" validate:"oneof=flat pgvector"`

	PGVector PGVectorConfig `koanf:"pgvector"`
}

// PGVectorConfig mirrors the snapshot index into PostgreSQL.
type PGVectorConfig struct {
	DSN   string `koanf:"dsn"`
	Table string `koanf:"table"`
	// Sync loads the snapshot vectors into Table at startup.
	Sync bool `koanf:"sync"`
}

// SessionsConfig selects the session store.
type SessionsConfig struct {
	Backend string        `koanf:"backend" validate:"oneof=memory badger dynamodb"`
	TTL     time.Duration `koanf:"ttl" validate:"gte=0"`

	// Dir is the Badger directory. Empty means in-memory Badger.
	Dir string `koanf:"dir"`
	// Table is the DynamoDB table.
	Table string `koanf:"table"`
}

// MusicServiceConfig selects where playlists are created.
type MusicServiceConfig struct {
	Backend string `koanf:"backend" validate:"oneof=spotify memory"`

	Spotify SpotifyConfig `koanf:"spotify"`
}

// SpotifyConfig holds Spotify credentials.
type SpotifyConfig struct {
	ClientID          string  `koanf:"client_id"`
	ClientSecret      string  `koanf:"client_secret"`
	RefreshToken      string  `koanf:"refresh_token"`
	Market            string  `koanf:"market" validate:"omitempty,len=2"`
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
}

// ServerConfig configures the HTTP host.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// RateLimit is requests per minute per client IP. 0 disables it.
	RateLimit int `koanf:"rate_limit" validate:"gte=0"`
	// MaxConcurrent bounds in-flight recommendation requests. 0 is unlimited.
	MaxConcurrent int64 `koanf:"max_concurrent" validate:"gte=0"`
	// QueueTimeout is how long a request waits for a slot before a 503.
	QueueTimeout time.Duration `koanf:"queue_timeout" validate:"gte=0"`
	// MaxCount caps the count a client may request.
	MaxCount int `koanf:"max_count" validate:"gt=0"`
}
