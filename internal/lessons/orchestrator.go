package lessons

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lessonforge/internal/config"
	"lessonforge/internal/llm"
)

// variant is one combination of response-format strictness and
// context-inclusion tried by the orchestrator.
type variant struct {
	Plain       bool
	DropContext bool
}

// variantsFor returns the ordered variant list: strict structured output
// with full context, plain text with full context, and (only when context
// exists) plain text without it.
func variantsFor(hasContext bool) []variant {
	v := []variant{
		{Plain: false, DropContext: false},
		{Plain: true, DropContext: false},
	}
	if hasContext {
		v = append(v, variant{Plain: true, DropContext: true})
	}
	return v
}

// Orchestrator drives the retry/variant state machine for one lesson.
// Variants and attempts are strictly sequential; one outstanding provider
// call at a time.
type Orchestrator struct {
	cfg     config.PipelineConfig
	backoff llm.Backoff
	log     *zap.Logger
}

// NewOrchestrator builds an orchestrator from pipeline configuration.
func NewOrchestrator(cfg config.PipelineConfig, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg: cfg,
		backoff: llm.Backoff{
			Base:       cfg.BackoffBase,
			Max:        cfg.BackoffMax,
			Multiplier: cfg.BackoffMultiplier,
		},
		log: log,
	}
}

// Run executes the state machine against the given route and returns the
// first schema-valid lesson, the attempt history, and an error when every
// variant is exhausted or a non-recoverable failure occurred. Callers fall
// back to the deterministic generator on error.
func (o *Orchestrator) Run(ctx context.Context, route llm.Route, req Request, prompts Prompts, maxTokens int) (*Lesson, []Attempt, error) {
	variants := variantsFor(prompts.HasContext)
	history := make([]Attempt, 0, len(variants)*o.cfg.AttemptsPerVariant)

	var lastErr error

	vi := 0
	for vi < len(variants) {
		v := variants[vi]
		next := vi + 1

	attempts:
		for a := 0; a < o.cfg.AttemptsPerVariant; a++ {
			resp, err := o.call(ctx, route, v, prompts, maxTokens)

			att := Attempt{
				Variant:        vi,
				Mode:           variantMode(v),
				ContextDropped: v.DropContext,
			}
			if resp != nil {
				att.TokensUsed = resp.Usage.TotalTokens
			}

			if err != nil {
				att.Outcome = OutcomeError
				history = append(history, att)
				lastErr = err

				switch {
				case llm.Retryable(err):
					if a < o.cfg.AttemptsPerVariant-1 {
						o.log.Warn("retryable provider failure",
							zap.Int("variant", vi), zap.Int("attempt", a), zap.Error(err))
						if serr := llm.Sleep(ctx, o.backoff.Wait(a, err)); serr != nil {
							return nil, history, serr
						}
						continue
					}
					// Attempt budget spent; move on.
					break attempts
				case llm.FormatRejected(err):
					o.log.Info("response format rejected, advancing variant",
						zap.Int("variant", vi), zap.Error(err))
					break attempts
				default:
					// Non-recoverable: abort the whole orchestration.
					return nil, history, err
				}
			}

			// Truncation with context present is always retried once
			// without context before accepting a truncated result.
			if resp.Truncated() {
				att.Outcome = OutcomeTruncated
				if di := dropContextIndex(variants); di > vi && !v.DropContext {
					history = append(history, att)
					o.log.Info("truncated response, forcing context-dropping variant",
						zap.Int("variant", vi))
					next = di
					break attempts
				}
			} else {
				att.Outcome = OutcomeSuccess
			}
			history = append(history, att)

			lesson, perr := o.accept(resp, req)
			if perr == nil {
				return lesson, history, nil
			}
			// An unparseable or schema-invalid candidate is not a
			// network failure; retrying the same variant would get the
			// same malformed shape. Advance instead.
			lastErr = perr
			o.log.Warn("candidate rejected, advancing variant",
				zap.Int("variant", vi), zap.Int("attempt", a), zap.Error(perr))
			break attempts
		}

		vi = next
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("orchestration produced no candidate")
	}
	return nil, history, fmt.Errorf("all variants exhausted: %w", lastErr)
}

// call issues one provider request for the given variant.
func (o *Orchestrator) call(ctx context.Context, route llm.Route, v variant, prompts Prompts, maxTokens int) (*llm.Response, error) {
	user := prompts.User
	if v.DropContext {
		user = prompts.UserNoContext
	}

	req := llm.Request{
		System:      prompts.System,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: user}},
		MaxTokens:   maxTokens,
		Temperature: o.clampTemperature(o.cfg.Temperature),
	}

	if v.Plain {
		req.Mode = llm.ModePlain
		req.Messages[0].Content += PlainModeSuffix()
	} else {
		req.Mode = llm.ModeSchema
		req.Schema = LessonSchema
	}

	return route.Provider.Complete(ctx, req)
}

// accept extracts, parses, validates, and (once) normalizes a candidate.
func (o *Orchestrator) accept(resp *llm.Response, req Request) (*Lesson, error) {
	text := ExtractText(resp)
	if text == "" {
		return nil, &llm.ErrEmptyResponse{}
	}

	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	lesson, err := ParseLesson(raw)
	if err != nil {
		return nil, err
	}

	if err := Validate(lesson); err == nil {
		return lesson, nil
	}

	// One normalization pass, one re-validation. Still failing means the
	// candidate is discarded; the variant loop governs retries.
	Normalize(lesson, req)
	if err := Validate(lesson); err != nil {
		return nil, fmt.Errorf("candidate invalid after normalization: %w", err)
	}
	return lesson, nil
}

func (o *Orchestrator) clampTemperature(t float64) float64 {
	if t < o.cfg.TemperatureMin {
		return o.cfg.TemperatureMin
	}
	if t > o.cfg.TemperatureMax {
		return o.cfg.TemperatureMax
	}
	return t
}

func variantMode(v variant) llm.ResponseMode {
	if v.Plain {
		return llm.ModePlain
	}
	return llm.ModeSchema
}

// dropContextIndex returns the index of the context-dropping variant, or
// -1 when the list has none.
func dropContextIndex(variants []variant) int {
	for i, v := range variants {
		if v.DropContext {
			return i
		}
	}
	return -1
}
