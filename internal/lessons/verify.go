package lessons

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"lessonforge/internal/config"
	"lessonforge/internal/llm"
)

// nonFatalReasons is the fixed denylist of phrases describing acceptable
// properties of a deliberately short lesson. A verifier complaint matching
// any of these (case-insensitive substring) is advisory, not fatal.
var nonFatalReasons = []string{
	"too brief",
	"too short",
	"brevity",
	"brief",
	"concise",
	"more detail",
	"more examples",
	"more depth",
	"advanced material",
	"advanced topics",
	"advanced concepts",
	"does not acknowledge",
	"recent quiz",
	"quiz miss",
	"could be expanded",
	"only scratches",
	"lacks depth",
	"minor",
}

// Verifier is the verification gate: a second, cheaper completion that
// checks topical and factual alignment of a candidate lesson.
type Verifier struct {
	aux     llm.Route
	cfg     config.PipelineConfig
	backoff llm.Backoff
	log     *zap.Logger
}

// NewVerifier creates the verification gate on the given auxiliary route.
func NewVerifier(aux llm.Route, cfg config.PipelineConfig, log *zap.Logger) *Verifier {
	return &Verifier{
		aux: aux,
		cfg: cfg,
		backoff: llm.Backoff{
			Base:       cfg.BackoffBase,
			Max:        cfg.BackoffMax,
			Multiplier: cfg.BackoffMultiplier,
		},
		log: log,
	}
}

// Verify runs the gate and reports whether the candidate is accepted.
// An unreachable or inconclusive verifier accepts: false negatives must
// not block delivery. Only fatal reasons reject.
func (v *Verifier) Verify(ctx context.Context, l *Lesson, req Request) (VerificationResult, bool) {
	result, err := v.call(ctx, l, req)
	if err != nil {
		v.log.Warn("verification call failed, accepting candidate", zap.Error(err))
		return VerificationResult{Valid: true}, true
	}

	fatal, advisory := partitionReasons(result.Reasons)
	for _, r := range advisory {
		v.log.Info("advisory verification reason", zap.String("reason", r))
	}

	// Accept on valid, or on invalid with no fatal reason remaining.
	// The verifier's boolean alone never rejects.
	if result.Valid || len(fatal) == 0 {
		return result, true
	}

	v.log.Warn("candidate rejected by verification",
		zap.Strings("fatal_reasons", fatal))
	return result, false
}

// call issues the verification completion with its own short retry loop,
// downgrading from structured output to plain text on the same error
// conditions as the main orchestrator.
func (v *Verifier) call(ctx context.Context, l *Lesson, req Request) (VerificationResult, error) {
	ctx = llm.WithPurpose(ctx, "verify")
	user := buildVerifyUserMessage(l, req)

	plain := false
	var lastErr error

	for attempt := 0; attempt < v.cfg.VerifyAttempts; attempt++ {
		lreq := llm.Request{
			System:      verifySystemPrompt,
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: user}},
			MaxTokens:   v.cfg.VerifyMaxTokens,
			Temperature: v.cfg.VerifyTemperature,
		}
		if plain {
			lreq.Mode = llm.ModePlain
		} else {
			lreq.Mode = llm.ModeSchema
			lreq.Schema = VerificationSchema
		}

		resp, err := v.aux.Provider.Complete(ctx, lreq)
		if err != nil {
			lastErr = err
			switch {
			case llm.Retryable(err):
				if serr := llm.Sleep(ctx, v.backoff.Wait(attempt, err)); serr != nil {
					return VerificationResult{}, serr
				}
			case llm.FormatRejected(err):
				plain = true
			default:
				return VerificationResult{}, err
			}
			continue
		}

		raw, err := ExtractJSON(ExtractText(resp))
		if err != nil {
			lastErr = err
			plain = true
			continue
		}

		var result VerificationResult
		if err := json.Unmarshal(raw, &result); err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}

	return VerificationResult{}, lastErr
}

// partitionReasons splits verifier reasons into fatal and advisory using
// the non-fatal denylist.
func partitionReasons(reasons []string) (fatal, advisory []string) {
	for _, r := range reasons {
		if isNonFatal(r) {
			advisory = append(advisory, r)
		} else {
			fatal = append(fatal, r)
		}
	}
	return fatal, advisory
}

func isNonFatal(reason string) bool {
	r := strings.ToLower(reason)
	for _, p := range nonFatalReasons {
		if strings.Contains(r, p) {
			return true
		}
	}
	return false
}
