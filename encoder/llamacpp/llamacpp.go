// Package llamacpp provides an encoder that runs a GGUF embedding model
// in-process through llama.cpp.
package llamacpp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hybridgroup/yzma/pkg/llama"

	"github.com/heavenlydemon269/vibelist/encoder"
)

// Compile-time check to ensure Encoder satisfies encoder.Encoder.
var _ encoder.Encoder = (*Encoder)(nil)

// ErrClosed is returned by Encode after Close.
var ErrClosed = errors.New("llamacpp encoder: closed")

// Config configures the encoder.
type Config struct {
	// LibPath is the directory holding the llama.cpp shared libraries.
	LibPath string
	// ModelFile is the GGUF embedding model.
	ModelFile string

	ContextSize int
	BatchSize   int
	GPULayers   int
	MainGPU     int

	// Pooling selects how token states are reduced to one vector.
	Pooling llama.PoolingType

	// Suffix is appended to each input when missing; some models expect
	// an end-of-text marker before the pooled token.
	Suffix string

	MaxInputRunes int
}

// DefaultConfig returns defaults for a last-token pooled model.
func DefaultConfig(libPath, modelFile string) Config {
	return Config{
		LibPath:       libPath,
		ModelFile:     modelFile,
		ContextSize:   512,
		BatchSize:     512,
		GPULayers:     0,
		Pooling:       llama.PoolingTypeLast,
		Suffix:        "<|endoftext|>",
		MaxInputRunes: encoder.DefaultMaxInputRunes,
	}
}

func (c Config) validate() error {
	if c.ModelFile == "" {
		return errors.New("llamacpp encoder: model file is required")
	}
	if c.ContextSize <= 0 {
		return fmt.Errorf("llamacpp encoder: context size must be positive, got %d", c.ContextSize)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("llamacpp encoder: batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// Encoder runs one model. Contexts are created per call and calls are
// serialized.
type Encoder struct {
	cfg   Config
	name  string
	dim   int
	mu    sync.Mutex
	model llama.Model
}

// New loads the native library and the model.
func New(cfg Config) (*Encoder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := loadLibrary(cfg.LibPath); err != nil {
		return nil, err
	}

	params := llama.ModelDefaultParams()
	params.NGpuLayers = int32(cfg.GPULayers)
	params.MainGpu = int32(cfg.MainGPU)

	model, err := llama.ModelLoadFromFile(cfg.ModelFile, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding model: %w", err)
	}
	if model == 0 {
		return nil, fmt.Errorf("failed to load embedding model from %s", cfg.ModelFile)
	}

	return &Encoder{
		cfg:   cfg,
		name:  "llamacpp:" + filepath.Base(cfg.ModelFile),
		dim:   int(llama.ModelNEmbd(model)),
		model: model,
	}, nil
}

var libOnce sync.Once
var libErr error

func loadLibrary(path string) error {
	libOnce.Do(func() {
		if path == "" {
			path = os.Getenv("YZMA_LIB")
		}
		if path == "" {
			libErr = errors.New("llamacpp encoder: library path is required")
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			libErr = err
			return
		}
		if err := llama.Load(abs); err != nil {
			libErr = fmt.Errorf("failed to load llama library: %w", err)
			return
		}
		llama.LogSet(llama.LogSilent())
		llama.Init()
	})
	return libErr
}

// Dimension implements encoder.Encoder.
func (e *Encoder) Dimension() int { return e.dim }

// Model implements encoder.Encoder.
func (e *Encoder) Model() string { return e.name }

// Encode implements encoder.Encoder.
func (e *Encoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text = encoder.Prepare(text, e.cfg.MaxInputRunes)
	if e.cfg.Suffix != "" {
		text += e.cfg.Suffix
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == 0 {
		return nil, ErrClosed
	}

	vocab := llama.ModelGetVocab(e.model)
	tokens := llama.Tokenize(vocab, text, true, true)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty tokenization")
	}
	if len(tokens) > e.cfg.ContextSize {
		tokens = tokens[:e.cfg.ContextSize]
	}

	ctxParams := llama.ContextDefaultParams()
	ctxParams.NCtx = uint32(e.cfg.ContextSize)
	ctxParams.NBatch = uint32(max(e.cfg.BatchSize, len(tokens)))
	ctxParams.PoolingType = e.cfg.Pooling
	ctxParams.Embeddings = 1

	lctx, err := llama.InitFromModel(e.model, ctxParams)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize context: %w", err)
	}
	defer llama.Free(lctx)

	batch := llama.BatchGetOne(tokens)
	if status, err := llama.Decode(lctx, batch); err != nil || status != 0 {
		if err != nil {
			return nil, fmt.Errorf("decode failed: %w", err)
		}
		return nil, fmt.Errorf("decode failed with status: %d", status)
	}
	_ = llama.Synchronize(lctx)

	vec, err := llama.GetEmbeddingsSeq(lctx, 0, llama.ModelNEmbd(e.model))
	if err != nil {
		return nil, fmt.Errorf("unable to get embeddings: %w", err)
	}
	if err := encoder.Validate(vec, e.dim); err != nil {
		return nil, err
	}

	out := make([]float32, len(vec))
	copy(out, vec)
	return out, nil
}

// Close frees the model.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model != 0 {
		llama.ModelFree(e.model)
		e.model = 0
	}
	return nil
}
