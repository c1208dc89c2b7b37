// Package cache provides a Redis-backed decorator for the embedder port.
// Identical document text produces identical embeddings, and bulk uploads
// routinely resubmit the same text, so caching by content fingerprint cuts
// most embedding calls.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"kycgate/internal/engine/ports"
	"kycgate/internal/platform/redis"
)

const (
	keyPrefix  = "kycgate:embedding:"
	defaultTTL = 24 * time.Hour
)

// CachedEmbedder wraps an Embedder with a fail-open Redis cache. A cache
// error is never surfaced; the inner embedder is called instead.
type CachedEmbedder struct {
	inner  ports.Embedder
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Option configures the cache.
type Option func(*CachedEmbedder)

// WithLogger sets a logger for cache diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CachedEmbedder) { c.logger = logger }
}

// WithTTL overrides how long cached embeddings live.
func WithTTL(ttl time.Duration) Option {
	return func(c *CachedEmbedder) { c.ttl = ttl }
}

// New wraps an embedder with the cache. A nil client disables caching and
// passes every call through, so callers need no nil checks.
func New(inner ports.Embedder, client *redis.Client, opts ...Option) *CachedEmbedder {
	c := &CachedEmbedder{
		inner:  inner,
		client: client,
		ttl:    defaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed returns the cached embedding for the text's fingerprint, or computes
// and caches it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.client == nil {
		return c.inner.Embed(ctx, text)
	}

	key := keyPrefix + Fingerprint(text)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var embedding []float32
		if err := json.Unmarshal(raw, &embedding); err == nil {
			return embedding, nil
		}
		// Unparseable entry: fall through and overwrite it.
	}

	embedding, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(embedding); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil && c.logger != nil {
			c.logger.WarnContext(ctx, "embedding cache write failed", "error", err)
		}
	}
	return embedding, nil
}

// Fingerprint returns the hex blake2b-256 digest of document text. Used as
// the cache key and as the content identity for duplicate pre-checks.
func Fingerprint(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
