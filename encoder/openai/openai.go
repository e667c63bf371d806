// Package openai provides an encoder backed by an OpenAI-compatible
// embeddings API.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/heavenlydemon269/vibelist/encoder"
)

// Compile-time check to ensure Encoder satisfies encoder.BatchEncoder.
var _ encoder.BatchEncoder = (*Encoder)(nil)

// Config configures the encoder.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint for compatible providers.
	BaseURL string
	Model   string
	// Dimensions is the vector length. Models that support shortening
	// receive it as the requested output size.
	Dimensions int

	// MaxInputRunes bounds each input before it is sent.
	MaxInputRunes int

	// RequestsPerSecond limits API calls. Zero means unlimited.
	RequestsPerSecond float64
	Burst             int

	// BatchSize bounds the inputs per request in EncodeBatch.
	BatchSize int
}

// DefaultConfig returns a configuration for text-embedding-3-small.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:            apiKey,
		Model:             string(openai.SmallEmbedding3),
		Dimensions:        1536,
		MaxInputRunes:     encoder.DefaultMaxInputRunes,
		RequestsPerSecond: 50,
		Burst:             10,
		BatchSize:         256,
	}
}

// Encoder calls the embeddings endpoint.
type Encoder struct {
	client  *openai.Client
	cfg     Config
	limiter *rate.Limiter
}

// New creates an encoder.
func New(cfg Config) (*Encoder, error) {
	if cfg.Model == "" {
		return nil, errors.New("openai encoder: model is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("openai encoder: dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 256
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)

	return &Encoder{
		client:  openai.NewClientWithConfig(clientConfig),
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

// Dimension implements encoder.Encoder.
func (e *Encoder) Dimension() int { return e.cfg.Dimensions }

// Model implements encoder.Encoder.
func (e *Encoder) Model() string { return e.cfg.Model }

// Encode implements encoder.Encoder.
func (e *Encoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeBatch implements encoder.BatchEncoder.
func (e *Encoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(texts))
		vecs, err := e.request(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Encoder) request(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = encoder.Prepare(t, e.cfg.MaxInputRunes)
		// The API rejects empty strings.
		if input[i] == "" {
			input[i] = " "
		}
	}

	req := openai.EmbeddingRequest{
		Input: input,
		Model: openai.EmbeddingModel(e.cfg.Model),
	}
	if supportsDimensions(e.cfg.Model) {
		req.Dimensions = e.cfg.Dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || vecs[d.Index] != nil {
			return nil, fmt.Errorf("embedding response has invalid index %d", d.Index)
		}
		if err := encoder.Validate(d.Embedding, e.cfg.Dimensions); err != nil {
			return nil, err
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

// supportsDimensions reports whether the model accepts a requested output size.
func supportsDimensions(model string) bool {
	switch openai.EmbeddingModel(model) {
	case openai.AdaEmbeddingV2:
		return false
	default:
		return true
	}
}
