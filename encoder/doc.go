// Package encoder turns free text into fixed-length embedding vectors.
//
// The same encoder (same model, same input preparation) must be used to
// build an index and to embed queries against it; the snapshot manifest
// records the model name so a mismatch can be detected at startup.
//
// # Input preparation
//
// Every encoder passes its input through Prepare: the text is NFC-normalized,
// whitespace runs are collapsed and the result is cut to at most
// MaxInputRunes runes on a rune boundary. Long input is truncated, never
// rejected. Backends with a token budget truncate again at the token level.
//
// # Implementations
//
//   - Hashing: deterministic feature hashing, no model required
//   - openai (subpackage): OpenAI-compatible embedding APIs
//   - llamacpp (subpackage): local GGUF models through llama.cpp
//
// Wrappers add caching (Cached) and a circuit breaker (WithBreaker).
package encoder
