package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// UsageEvent is one row of the append-only usage ledger.
type UsageEvent struct {
	UserID       string
	IP           string
	Model        string
	Source       string // purpose tag: "lesson", "verify", ...
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// UsageSink receives usage events. Implemented by the store layer.
type UsageSink interface {
	AppendUsage(ctx context.Context, ev UsageEvent) error
}

// UsageProvider is a decorator that appends a ledger row per completion
// call, tagged with the purpose from the context.
type UsageProvider struct {
	inner Provider
	sink  UsageSink
	log   *zap.Logger
}

// WithUsage wraps a Provider with ledger recording.
func WithUsage(p Provider, sink UsageSink, log *zap.Logger) Provider {
	return &UsageProvider{inner: p, sink: sink, log: log}
}

func (u *UsageProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := u.inner.Complete(ctx, req)

	ev := UsageEvent{
		UserID:    UserFrom(ctx),
		IP:        ClientIPFrom(ctx),
		Model:     u.inner.ModelID(),
		Source:    PurposeFrom(ctx),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if resp != nil {
		ev.Model = resp.Model
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	// Ledger failures must not fail the request.
	if logErr := u.sink.AppendUsage(ctx, ev); logErr != nil {
		u.log.Warn("usage ledger append failed",
			zap.String("model", ev.Model),
			zap.String("source", ev.Source),
			zap.Error(logErr))
	}

	return resp, err
}

func (u *UsageProvider) ModelID() string {
	return u.inner.ModelID()
}
