package lessons

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lessonforge/internal/config"
	"lessonforge/internal/llm"
)

func newTestCoordinator(single SingleGenerator) *Coordinator {
	cfg := config.Default()
	return NewCoordinator(cfg.Batch, cfg.LLM, single, zap.NewNop())
}

// countingSingle returns a SingleGenerator producing fallback lessons and
// the counter it increments per call.
func countingSingle() (SingleGenerator, *atomic.Int32) {
	var calls atomic.Int32
	return func(_ context.Context, req Request) *Lesson {
		calls.Add(1)
		return Fallback(req)
	}, &calls
}

func batchToolArgs(t *testing.T, lessons ...any) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"lessons": lessons})
	require.NoError(t, err)
	return string(raw)
}

func batchRequests(n int) []Request {
	reqs := make([]Request, n)
	for i := range reqs {
		reqs[i] = testRequest()
	}
	return reqs
}

func TestCoordinator_TrueBatchAllValid(t *testing.T) {
	single, calls := countingSingle()
	mock := llm.NewMockProvider(llm.MockResponse{
		ToolArgs: batchToolArgs(t, validLesson(), validLesson(), validLesson()),
	})

	out := newTestCoordinator(single).Generate(context.Background(), testRoute(mock), batchRequests(3), 2048)

	require.Len(t, out, 3)
	for _, l := range out {
		require.NotNil(t, l)
		require.NoError(t, Validate(l))
	}
	require.Equal(t, int32(0), calls.Load(), "fan-out must not run when the batch succeeds")
	require.Equal(t, 1, mock.CallCount())
	require.NotNil(t, mock.Calls[0].Tool)
	require.Equal(t, "submit_lessons", mock.Calls[0].Tool.Name)
}

func TestCoordinator_BelowThresholdFallsBackToFanOut(t *testing.T) {
	// 1 valid of 3 is under the ceil(3*0.5)=2 cutoff: the whole batch
	// result is discarded and 3 independent runs settle instead.
	single, calls := countingSingle()
	mock := llm.NewMockProvider(llm.MockResponse{
		ToolArgs: batchToolArgs(t, validLesson(), map[string]any{"title": "junk"}, "not even an object"),
	})

	out := newTestCoordinator(single).Generate(context.Background(), testRoute(mock), batchRequests(3), 2048)

	require.Len(t, out, 3)
	for _, l := range out {
		require.NotNil(t, l)
		require.NoError(t, Validate(l))
	}
	require.Equal(t, int32(3), calls.Load())
}

func TestCoordinator_PartialBatchFillsGaps(t *testing.T) {
	single, calls := countingSingle()
	mock := llm.NewMockProvider(llm.MockResponse{
		ToolArgs: batchToolArgs(t, validLesson(), validLesson(), map[string]any{"title": "junk"}),
	})

	out := newTestCoordinator(single).Generate(context.Background(), testRoute(mock), batchRequests(3), 2048)

	require.Len(t, out, 3)
	for _, l := range out {
		require.NotNil(t, l)
	}
	require.Equal(t, int32(1), calls.Load(), "only the invalid slot is regenerated")
}

func TestCoordinator_BatchCallFailureFansOut(t *testing.T) {
	single, calls := countingSingle()
	mock := llm.NewMockProvider() // every call fails

	out := newTestCoordinator(single).Generate(context.Background(), testRoute(mock), batchRequests(3), 2048)

	require.Len(t, out, 3)
	require.Equal(t, int32(3), calls.Load())
}

func TestCoordinator_SingleRequestSkipsBatching(t *testing.T) {
	single, calls := countingSingle()
	mock := llm.NewMockProvider()

	out := newTestCoordinator(single).Generate(context.Background(), testRoute(mock), batchRequests(1), 2048)

	require.Len(t, out, 1)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, 0, mock.CallCount())
}

func TestCoordinator_Budget(t *testing.T) {
	c := newTestCoordinator(nil)

	// Floor: 900 per lesson beats a small discounted estimate.
	require.Equal(t, 2700, c.budget("gpt-4o-mini", 3, 512))

	// Discounted estimate wins when larger: 2048*3*0.85 = 5222.
	require.Equal(t, 5222, c.budget("gpt-4o-mini", 3, 2048))

	// Capped at the model ceiling.
	require.Equal(t, 8192, c.budget("gemini-2.0-flash", 5, 4096))
}
