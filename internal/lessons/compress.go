package lessons

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"lessonforge/internal/config"
	"lessonforge/internal/llm"
)

// Compressor shrinks oversized structured context with a cheap auxiliary
// model call. Compression failures are never fatal: the caller gets the
// uncompressed text back.
type Compressor struct {
	aux llm.Route
	cfg config.CompressionConfig
	log *zap.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	summary string
	expires time.Time
}

// NewCompressor creates a context compressor using the given auxiliary route.
func NewCompressor(aux llm.Route, cfg config.CompressionConfig, log *zap.Logger) *Compressor {
	return &Compressor{
		aux:   aux,
		cfg:   cfg,
		log:   log,
		cache: make(map[string]cacheEntry),
	}
}

// Compress returns the context to inject into the prompt. Below the size
// threshold (or with compression disabled) the input passes through
// untouched. Results are cached by content hash with a bounded TTL.
func (c *Compressor) Compress(ctx context.Context, text string) string {
	if !c.cfg.Enabled || len(text) <= c.cfg.ThresholdBytes {
		return text
	}

	key := hashKey(text)
	if summary, ok := c.lookup(key); ok {
		return summary
	}

	summary, err := c.compress(ctx, text)
	if err != nil {
		c.log.Warn("context compression failed, using uncompressed text",
			zap.Int("bytes", len(text)), zap.Error(err))
		return text
	}

	c.store(key, summary)
	return summary
}

func (c *Compressor) compress(ctx context.Context, text string) (string, error) {
	ctx = llm.WithPurpose(ctx, "compress")

	// Rough byte-per-token estimate drives the target budget.
	targetTokens := int(float64(len(text)/4) * c.cfg.TargetRatio)
	if targetTokens > c.cfg.MaxTokens {
		targetTokens = c.cfg.MaxTokens
	}
	if targetTokens < 64 {
		targetTokens = 64
	}

	resp, err := c.aux.Provider.Complete(ctx, llm.Request{
		System: compressionSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildCompressionUserMessage(text, targetTokens)},
		},
		Mode:        llm.ModeSchema,
		Schema:      CompressionSchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}

	raw, err := ExtractJSON(ExtractText(resp))
	if err != nil {
		return "", err
	}

	var out struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	if out.Summary == "" {
		return "", &llm.ErrEmptyResponse{}
	}

	return out.Summary, nil
}

func (c *Compressor) lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cache[key]
	if !ok || time.Now().After(e.expires) {
		delete(c.cache, key)
		return "", false
	}
	return e.summary, true
}

func (c *Compressor) store(key, summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Crude bound: drop the whole cache when full. Entries are cheap to
	// regenerate and the TTL keeps it small in practice.
	if len(c.cache) >= c.cfg.CacheSize {
		c.cache = make(map[string]cacheEntry)
	}
	c.cache[key] = cacheEntry{summary: summary, expires: time.Now().Add(c.cfg.CacheTTL)}
}

func hashKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
