package lessons

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"lessonforge/internal/config"
	"lessonforge/internal/llm"
)

type fakeLedger struct {
	spend float64
	err   error
}

func (f *fakeLedger) SpendSince(context.Context, string, time.Time) (float64, error) {
	return f.spend, f.err
}

func newTestService(t *testing.T, mock llm.Provider, ledger SpendLedger, ceiling float64) *Service {
	t.Helper()
	cfg := config.Default()
	cfg.Pipeline.BackoffBase = 0
	cfg.Pipeline.BackoffMax = 0
	cfg.Usage.CostCeilingUSD = ceiling

	svc, err := NewService(cfg, llm.NewTestRegistry(mock), ledger, zap.NewNop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func userCtx() context.Context {
	return llm.WithUser(context.Background(), "user-1")
}

func TestService_SpendGateBlocks(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: validLessonJSON(t)})
	svc := newTestService(t, mock, &fakeLedger{spend: 10}, 5)

	_, _, err := svc.Generate(userCtx(), testRequest())

	var limit *ErrUsageLimitExceeded
	if !errors.As(err, &limit) {
		t.Fatalf("got %v, want ErrUsageLimitExceeded", err)
	}
	if mock.CallCount() != 0 {
		t.Errorf("made %d provider calls past the gate", mock.CallCount())
	}
}

func TestService_GateSkippedWhenLedgerFails(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: validLessonJSON(t)},
		llm.MockResponse{Content: verdictJSON(t, true)},
	)
	svc := newTestService(t, mock, &fakeLedger{err: errors.New("db down")}, 5)

	lesson, _, err := svc.Generate(userCtx(), testRequest())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if lesson == nil {
		t.Fatal("no lesson")
	}
}

func TestService_SuccessfulGeneration(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: validLessonJSON(t)},
		llm.MockResponse{Content: verdictJSON(t, true)},
	)
	svc := newTestService(t, mock, nil, 0)

	lesson, attempts, err := svc.Generate(userCtx(), testRequest())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if lesson.Title != "Factoring Quadratic Expressions" {
		t.Errorf("title = %q", lesson.Title)
	}
	if len(attempts) != 1 {
		t.Errorf("attempts = %+v", attempts)
	}
	// One generation call plus one verification call.
	if mock.CallCount() != 2 {
		t.Errorf("made %d calls, want 2", mock.CallCount())
	}
}

func TestService_ConvergesToFallback(t *testing.T) {
	// Provider is down for generation and verification alike. The caller
	// still gets a schema-valid lesson.
	mock := llm.NewMockProvider()
	svc := newTestService(t, mock, nil, 0)

	lesson, _, err := svc.Generate(userCtx(), testRequest())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if verr := Validate(lesson); verr != nil {
		t.Fatalf("fallback lesson invalid: %v", verr)
	}
	if lesson.Subject != "Algebra" {
		t.Errorf("subject = %q", lesson.Subject)
	}
}

func TestService_FatalVerificationFallsBack(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: validLessonJSON(t)},
		llm.MockResponse{Content: verdictJSON(t, false, "wrong topic entirely")},
	)
	svc := newTestService(t, mock, nil, 0)

	lesson, _, err := svc.Generate(userCtx(), testRequest())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if verr := Validate(lesson); verr != nil {
		t.Fatalf("fallback lesson invalid: %v", verr)
	}
	// The rejected candidate is replaced by the deterministic fallback.
	if lesson.Title == "Factoring Quadratic Expressions" {
		t.Error("rejected candidate was returned")
	}
}
