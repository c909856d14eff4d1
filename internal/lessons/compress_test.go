package lessons

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"

	"lessonforge/internal/config"
	"lessonforge/internal/llm"
)

func testCompressionCfg() config.CompressionConfig {
	cfg := config.Default().Compression
	cfg.ThresholdBytes = 100
	return cfg
}

func summaryJSON(t *testing.T, s string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"summary": s})
	if err != nil {
		t.Fatalf("marshal summary: %v", err)
	}
	return raw
}

func TestCompressor_PassthroughBelowThreshold(t *testing.T) {
	mock := llm.NewMockProvider()
	c := NewCompressor(testRoute(mock), testCompressionCfg(), zap.NewNop())

	got := c.Compress(context.Background(), "short context")
	if got != "short context" {
		t.Errorf("got %q", got)
	}
	if mock.CallCount() != 0 {
		t.Errorf("made %d calls for small input", mock.CallCount())
	}
}

func TestCompressor_CompressesAndCaches(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: summaryJSON(t, "condensed history")})
	c := NewCompressor(testRoute(mock), testCompressionCfg(), zap.NewNop())

	long := strings.Repeat("learner did well on fractions. ", 20)

	got := c.Compress(context.Background(), long)
	if got != "condensed history" {
		t.Errorf("got %q", got)
	}

	// Identical input is served from the cache.
	got = c.Compress(context.Background(), long)
	if got != "condensed history" {
		t.Errorf("cached result = %q", got)
	}
	if mock.CallCount() != 1 {
		t.Errorf("made %d calls, want 1", mock.CallCount())
	}
}

func TestCompressor_FailureFallsBackToOriginal(t *testing.T) {
	mock := llm.NewMockProvider() // every call fails
	c := NewCompressor(testRoute(mock), testCompressionCfg(), zap.NewNop())

	long := strings.Repeat("x ", 200)
	if got := c.Compress(context.Background(), long); got != long {
		t.Error("failed compression must return the original text")
	}
}

func TestCompressor_DisabledPassesThrough(t *testing.T) {
	cfg := testCompressionCfg()
	cfg.Enabled = false
	mock := llm.NewMockProvider()
	c := NewCompressor(testRoute(mock), cfg, zap.NewNop())

	long := strings.Repeat("x ", 200)
	if got := c.Compress(context.Background(), long); got != long {
		t.Error("disabled compressor must pass through")
	}
	if mock.CallCount() != 0 {
		t.Errorf("made %d calls while disabled", mock.CallCount())
	}
}
