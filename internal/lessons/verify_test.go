package lessons

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"lessonforge/internal/llm"
)

func newTestVerifier(p llm.Provider) *Verifier {
	return NewVerifier(testRoute(p), testPipelineCfg(), zap.NewNop())
}

func verdictJSON(t *testing.T, valid bool, reasons ...string) json.RawMessage {
	t.Helper()
	if reasons == nil {
		reasons = []string{}
	}
	raw, err := json.Marshal(VerificationResult{Valid: valid, Reasons: reasons})
	if err != nil {
		t.Fatalf("marshal verdict: %v", err)
	}
	return raw
}

func TestVerifier_AcceptsValid(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: verdictJSON(t, true)})

	_, ok := newTestVerifier(mock).Verify(context.Background(), validLesson(), testRequest())
	if !ok {
		t.Fatal("valid verdict rejected")
	}
}

func TestVerifier_NonFatalReasonsNeverReject(t *testing.T) {
	// The verifier's boolean alone never rejects: valid:false with only
	// advisory reasons is an accept.
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: verdictJSON(t, false, "too brief", "does not cover advanced material"),
	})

	_, ok := newTestVerifier(mock).Verify(context.Background(), validLesson(), testRequest())
	if !ok {
		t.Fatal("advisory-only verdict rejected")
	}
}

func TestVerifier_FatalReasonRejects(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: verdictJSON(t, false, "the lesson is about geometry, not factoring"),
	})

	result, ok := newTestVerifier(mock).Verify(context.Background(), validLesson(), testRequest())
	if ok {
		t.Fatal("fatal verdict accepted")
	}
	if result.Valid {
		t.Error("result.Valid = true")
	}
}

func TestVerifier_MixedReasonsReject(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: verdictJSON(t, false, "too brief", "factually wrong about prime factorization"),
	})

	_, ok := newTestVerifier(mock).Verify(context.Background(), validLesson(), testRequest())
	if ok {
		t.Fatal("verdict with a fatal reason accepted")
	}
}

func TestVerifier_UnreachableVerifierAccepts(t *testing.T) {
	// Exhausted mock: every call fails. Inconclusive verification must
	// not block delivery.
	mock := llm.NewMockProvider()

	_, ok := newTestVerifier(mock).Verify(context.Background(), validLesson(), testRequest())
	if !ok {
		t.Fatal("unreachable verifier blocked delivery")
	}
}

func TestVerifier_DowngradesToPlainOnFormatRejection(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrFormatRejected{Status: 422, Err: errors.New("json_schema unsupported")}},
		llm.MockResponse{Content: verdictJSON(t, true)},
	)

	_, ok := newTestVerifier(mock).Verify(context.Background(), validLesson(), testRequest())
	if !ok {
		t.Fatal("verdict after downgrade rejected")
	}
	if mock.Calls[0].Mode != llm.ModeSchema {
		t.Errorf("first call mode = %q", mock.Calls[0].Mode)
	}
	if mock.Calls[1].Mode != llm.ModePlain {
		t.Errorf("second call mode = %q", mock.Calls[1].Mode)
	}
}

func TestPartitionReasons(t *testing.T) {
	fatal, advisory := partitionReasons([]string{
		"Too Brief for the subject",
		"missing advanced topics",
		"wrong formula for the quadratic case",
	})
	if len(advisory) != 2 {
		t.Errorf("advisory = %v", advisory)
	}
	if len(fatal) != 1 {
		t.Errorf("fatal = %v", fatal)
	}
}
