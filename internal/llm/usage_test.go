package llm

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type recordingSink struct {
	events []UsageEvent
	err    error
}

func (s *recordingSink) AppendUsage(_ context.Context, ev UsageEvent) error {
	s.events = append(s.events, ev)
	return s.err
}

func TestUsageProvider_RecordsLedgerRow(t *testing.T) {
	inner := NewMockProvider(MockResponse{
		Content: []byte(`{}`),
		Usage:   Usage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150},
	})
	sink := &recordingSink{}

	p := WithUsage(inner, sink, zap.NewNop())
	ctx := WithPurpose(WithUser(context.Background(), "user-1"), "lesson")

	if _, err := p.Complete(ctx, Request{}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if len(sink.events) != 1 {
		t.Fatalf("got %d events", len(sink.events))
	}
	ev := sink.events[0]
	if ev.UserID != "user-1" || ev.Source != "lesson" {
		t.Errorf("event tags = %q/%q", ev.UserID, ev.Source)
	}
	if ev.InputTokens != 100 || ev.OutputTokens != 50 {
		t.Errorf("tokens = %d/%d", ev.InputTokens, ev.OutputTokens)
	}
	if !ev.Success {
		t.Error("success not recorded")
	}
}

func TestUsageProvider_RecordsFailures(t *testing.T) {
	inner := NewMockProvider(MockResponse{Err: errors.New("boom")})
	sink := &recordingSink{}

	p := WithUsage(inner, sink, zap.NewNop())
	if _, err := p.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected provider error")
	}

	if len(sink.events) != 1 {
		t.Fatalf("got %d events", len(sink.events))
	}
	if sink.events[0].Success || sink.events[0].ErrorMessage == "" {
		t.Errorf("failure not captured: %+v", sink.events[0])
	}
}

func TestUsageProvider_SinkFailureDoesNotFailRequest(t *testing.T) {
	inner := NewMockProvider(MockResponse{Content: []byte(`{}`)})
	sink := &recordingSink{err: errors.New("ledger down")}

	p := WithUsage(inner, sink, zap.NewNop())
	if _, err := p.Complete(context.Background(), Request{}); err != nil {
		t.Fatalf("ledger failure leaked into the request: %v", err)
	}
}
