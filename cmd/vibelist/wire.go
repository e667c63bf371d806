package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/heavenlydemon269/vibelist"
	"github.com/heavenlydemon269/vibelist/blobstore"
	"github.com/heavenlydemon269/vibelist/blobstore/gcs"
	"github.com/heavenlydemon269/vibelist/blobstore/minio"
	"github.com/heavenlydemon269/vibelist/blobstore/s3"
	"github.com/heavenlydemon269/vibelist/encoder"
	"github.com/heavenlydemon269/vibelist/encoder/llamacpp"
	"github.com/heavenlydemon269/vibelist/encoder/openai"
	"github.com/heavenlydemon269/vibelist/engine"
	"github.com/heavenlydemon269/vibelist/index"
	"github.com/heavenlydemon269/vibelist/index/pgvector"
	"github.com/heavenlydemon269/vibelist/internal/config"
	"github.com/heavenlydemon269/vibelist/internal/logging"
	"github.com/heavenlydemon269/vibelist/metrics"
	"github.com/heavenlydemon269/vibelist/musicservice"
	"github.com/heavenlydemon269/vibelist/musicservice/spotify"
	"github.com/heavenlydemon269/vibelist/session"
	"github.com/heavenlydemon269/vibelist/snapshot"
)

// Compile-time check to ensure app satisfies io.Closer.
var _ io.Closer = (*app)(nil)

// app holds the components a command builds from the configuration. Close
// releases them in reverse order.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	closers []func() error
}

func newApp(flags *rootFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
	if flags.snapshot != "" {
		cfg.Snapshot.URI = flags.snapshot
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openStore resolves a snapshot URI:
//
//	/path/to/dir, file:///path   local directory
//	s3://bucket/prefix           AWS S3, credentials from the default chain
//	minio://bucket/prefix        MinIO at snapshot.minio.endpoint
//	gs://bucket/prefix           Google Cloud Storage
func (a *app) openStore(ctx context.Context, uri string) (blobstore.WritableStore, error) {
	scheme, bucket, prefix, err := parseStoreURI(uri)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "", "file":
		return blobstore.NewLocalStore(prefix), nil
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return s3.NewStore(awss3.NewFromConfig(awsCfg), bucket, prefix), nil
	case "minio":
		m := a.cfg.Snapshot.Minio
		return minio.New(minio.Config{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Secure:    m.Secure,
			Bucket:    bucket,
			Prefix:    prefix,
		})
	case "gs":
		store, err := gcs.New(ctx, bucket, prefix, a.cfg.Snapshot.GCSCredentialsFile)
		if err != nil {
			return nil, err
		}
		a.onClose(store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported snapshot scheme %q", scheme)
	}
}

// parseStoreURI splits uri into scheme, bucket and key prefix. For local
// paths the prefix is the directory.
func parseStoreURI(uri string) (scheme, bucket, prefix string, err error) {
	if uri == "" {
		return "", "", "", errors.New("empty snapshot uri")
	}
	if !strings.Contains(uri, "://") {
		return "", "", uri, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid snapshot uri %q: %w", uri, err)
	}
	if u.Scheme == "file" {
		return "file", "", u.Path, nil
	}
	if u.Host == "" {
		return "", "", "", fmt.Errorf("snapshot uri %q has no bucket", uri)
	}
	return u.Scheme, u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// newEncoder builds the configured backend, wrapped in a cache and, for
// remote backends, a circuit breaker.
func (a *app) newEncoder() (encoder.Encoder, error) {
	c := a.cfg.Encoder

	var enc encoder.Encoder
	switch c.Backend {
	case "openai":
		oc := openai.DefaultConfig(c.OpenAI.APIKey)
		oc.BaseURL = c.OpenAI.BaseURL
		if c.OpenAI.Model != "" {
			oc.Model = c.OpenAI.Model
		}
		if c.OpenAI.Dimensions > 0 {
			oc.Dimensions = c.OpenAI.Dimensions
		}
		oc.RequestsPerSecond = c.OpenAI.RequestsPerSecond
		if c.MaxInputRunes > 0 {
			oc.MaxInputRunes = c.MaxInputRunes
		}
		oe, err := openai.New(oc)
		if err != nil {
			return nil, err
		}
		enc = oe
		if c.OpenAI.Breaker {
			enc = encoder.WithBreaker(enc, encoder.DefaultBreakerSettings("openai"), a.logger)
		}
	case "llamacpp":
		lc := llamacpp.DefaultConfig(c.LlamaCpp.LibPath, c.LlamaCpp.ModelFile)
		if c.LlamaCpp.ContextSize > 0 {
			lc.ContextSize = c.LlamaCpp.ContextSize
			lc.BatchSize = c.LlamaCpp.ContextSize
		}
		lc.GPULayers = c.LlamaCpp.GPULayers
		if c.MaxInputRunes > 0 {
			lc.MaxInputRunes = c.MaxInputRunes
		}
		le, err := llamacpp.New(lc)
		if err != nil {
			return nil, err
		}
		a.onClose(le.Close)
		enc = le
	case "hashing":
		he, err := encoder.NewHashing(c.Hashing.Dimension, c.MaxInputRunes)
		if err != nil {
			return nil, err
		}
		enc = he
	default:
		return nil, fmt.Errorf("unknown encoder backend %q", c.Backend)
	}

	if c.CacheSize > 0 {
		enc = encoder.NewCached(enc, c.CacheSize, c.MaxInputRunes)
	}
	return enc, nil
}

// openVibelist loads the snapshot and serves it with enc. With the pgvector
// backend the loaded vectors are synced to (or checked against) Postgres and
// searches run there.
func (a *app) openVibelist(ctx context.Context, enc encoder.Encoder, reg prometheus.Registerer) (*vibelist.Vibelist, error) {
	store, err := a.openStore(ctx, a.cfg.Snapshot.URI)
	if err != nil {
		return nil, err
	}

	policy, err := engine.ParsePolicy(a.cfg.Engine.Policy)
	if err != nil {
		return nil, err
	}

	opts := []vibelist.Option{
		vibelist.WithPolicy(policy),
		vibelist.WithMargin(a.cfg.Engine.Margin),
		vibelist.WithLogger(&vibelist.Logger{Logger: a.logger}),
		vibelist.WithLoadOptions(snapshot.LoadOptions{
			CatalogName: a.cfg.Snapshot.CatalogName,
			IndexName:   a.cfg.Snapshot.IndexName,
			Table:       a.cfg.Snapshot.Table,
			TempDir:     a.cfg.Snapshot.TempDir,
		}),
	}
	if reg != nil {
		opts = append(opts, vibelist.WithMetricsCollector(metrics.NewPrometheus(reg)))
	}

	vl, err := vibelist.Open(ctx, store, enc, opts...)
	if err != nil {
		return nil, err
	}
	if a.cfg.Index.Backend != "pgvector" {
		a.onClose(vl.Close)
		return vl, nil
	}

	db, err := pgvector.Connect(ctx, a.cfg.Index.PGVector.DSN)
	if err != nil {
		return nil, err
	}
	a.onClose(db.Close)

	pg, err := a.pgIndex(ctx, db, vl)
	if err != nil {
		return nil, err
	}
	a.logger.InfoContext(ctx, "using pgvector index",
		slog.String("table", a.cfg.Index.PGVector.Table),
		slog.Int("rows", pg.Len()),
		slog.Int("dimension", pg.Dimension()),
	)

	served, err := vibelist.New(vl.Catalog(), pg, enc, opts...)
	if err != nil {
		return nil, err
	}
	a.onClose(served.Close)
	return served, nil
}

func (a *app) pgIndex(ctx context.Context, db *sql.DB, vl *vibelist.Vibelist) (*pgvector.Index, error) {
	table := a.cfg.Index.PGVector.Table
	idx := vl.Index()
	if src, ok := idx.(*index.Flat); ok && a.cfg.Index.PGVector.Sync {
		return pgvector.Load(ctx, db, table, src)
	}

	pg, err := pgvector.Open(ctx, db, table, idx.Dimension(), idx.Metric())
	if err != nil {
		return nil, err
	}
	if pg.Len() != vl.Catalog().Len() {
		return nil, fmt.Errorf("%w: pgvector table %s has %d rows, catalog has %d",
			vibelist.ErrConfiguration, table, pg.Len(), vl.Catalog().Len())
	}
	return pg, nil
}

// newSessions builds the configured session store.
func (a *app) newSessions(ctx context.Context) (session.Store, error) {
	c := a.cfg.Sessions
	switch c.Backend {
	case "memory":
		return session.NewMemoryStore(), nil
	case "badger":
		db, err := session.OpenBadger(c.Dir)
		if err != nil {
			return nil, err
		}
		a.onClose(db.Close)
		return session.NewBadgerStore(db, c.TTL), nil
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return session.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), c.Table, c.TTL), nil
	default:
		return nil, fmt.Errorf("unknown sessions backend %q", c.Backend)
	}
}

// newMusicService builds the configured playlist backend.
func (a *app) newMusicService(ctx context.Context) (musicservice.Client, error) {
	c := a.cfg.MusicService
	switch c.Backend {
	case "memory":
		return musicservice.NewMemory(), nil
	case "spotify":
		return spotify.New(ctx, spotify.Config{
			ClientID:          c.Spotify.ClientID,
			ClientSecret:      c.Spotify.ClientSecret,
			RefreshToken:      c.Spotify.RefreshToken,
			Market:            c.Spotify.Market,
			RequestsPerSecond: c.Spotify.RequestsPerSecond,
		}, a.logger)
	default:
		return nil, fmt.Errorf("unknown music service backend %q", c.Backend)
	}
}
