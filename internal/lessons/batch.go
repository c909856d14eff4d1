package lessons

import (
	"context"
	"encoding/json"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lessonforge/internal/config"
	"lessonforge/internal/llm"
)

// SingleGenerator produces one lesson for one request. The batch
// coordinator uses it for fan-out and for filling gaps in a partially
// valid batch. Implementations always return a lesson; the deterministic
// fallback absorbs provider failures.
type SingleGenerator func(ctx context.Context, req Request) *Lesson

// Coordinator amortizes multi-lesson generation. It first tries a single
// tool-call completion producing all lessons at once, and falls back to
// concurrent per-lesson generation when the model or the result does not
// cooperate.
type Coordinator struct {
	cfg    config.BatchConfig
	llmCfg config.LLMConfig
	single SingleGenerator
	log    *zap.Logger
}

// NewCoordinator builds a batch coordinator around a single-lesson
// generator.
func NewCoordinator(cfg config.BatchConfig, llmCfg config.LLMConfig, single SingleGenerator, log *zap.Logger) *Coordinator {
	return &Coordinator{cfg: cfg, llmCfg: llmCfg, single: single, log: log}
}

// Generate produces one lesson per request, in request order. Requests
// are expected to share a subject and topic; they may differ in
// difficulty and pace. perLessonTokens is the caller's single-lesson
// output budget, used to size the shared batch budget.
func (c *Coordinator) Generate(ctx context.Context, route llm.Route, reqs []Request, perLessonTokens int) []*Lesson {
	n := len(reqs)
	switch n {
	case 0:
		return nil
	case 1:
		return []*Lesson{c.single(ctx, reqs[0])}
	}

	if llm.SupportsTools(route.Model) {
		if lessons, ok := c.tryBatch(ctx, route, reqs, perLessonTokens); ok {
			return lessons
		}
	} else {
		c.log.Info("model does not support tool calls, fanning out",
			zap.String("model", route.Model), zap.Int("lessons", n))
	}

	return c.fanOut(ctx, reqs)
}

// tryBatch issues the single tool-call completion. It reports ok=false
// when the call failed or too few sub-lessons survived validation, in
// which case the caller fans out instead.
func (c *Coordinator) tryBatch(ctx context.Context, route llm.Route, reqs []Request, perLessonTokens int) ([]*Lesson, bool) {
	n := len(reqs)
	ctx = llm.WithPurpose(ctx, "batch")

	resp, err := route.Provider.Complete(ctx, llm.Request{
		System:      batchSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildBatchUserMessage(reqs)}},
		Mode:        llm.ModePlain,
		Tool:        BatchTool(n),
		MaxTokens:   c.budget(route.Model, n, perLessonTokens),
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		c.log.Warn("batch completion failed", zap.Int("lessons", n), zap.Error(err))
		return nil, false
	}

	raw := resp.ToolArgs
	if raw == "" {
		// Some models answer in text even when offered a tool.
		extracted, eerr := ExtractJSON(ExtractText(resp))
		if eerr != nil {
			c.log.Warn("batch response had no tool call and no parseable JSON", zap.Error(eerr))
			return nil, false
		}
		raw = string(extracted)
	}

	var payload struct {
		Lessons []json.RawMessage `json:"lessons"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		c.log.Warn("batch tool arguments unparseable", zap.Error(err))
		return nil, false
	}

	// Validate each sub-lesson independently; positions map to requests.
	// Strict validation only: normalization repair would count junk
	// sub-lessons as valid and mask a bad batch.
	results := make([]*Lesson, n)
	valid := 0
	for i := 0; i < n && i < len(payload.Lessons); i++ {
		l, perr := ParseLesson(payload.Lessons[i])
		if perr != nil {
			continue
		}
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		if verr := Validate(l); verr != nil {
			continue
		}
		results[i] = l
		valid++
	}

	threshold := int(math.Ceil(float64(n) * c.cfg.MinValidFraction))
	if valid < threshold {
		c.log.Warn("batch result below validity threshold, fanning out",
			zap.Int("valid", valid), zap.Int("threshold", threshold), zap.Int("lessons", n))
		return nil, false
	}

	// Fill the gaps individually.
	for i, l := range results {
		if l == nil {
			results[i] = c.single(ctx, reqs[i])
		}
	}
	return results, true
}

// fanOut generates every lesson concurrently. Each slot settles
// independently; one failing request never cancels its siblings.
func (c *Coordinator) fanOut(ctx context.Context, reqs []Request) []*Lesson {
	results := make([]*Lesson, len(reqs))

	var g errgroup.Group
	for i, r := range reqs {
		g.Go(func() error {
			results[i] = c.single(ctx, r)
			return nil
		})
	}
	// Goroutines above never return errors; Wait is just a join point.
	_ = g.Wait()

	return results
}

// budget sizes the shared output budget: a flat floor per lesson, or the
// discounted sum of per-lesson estimates when that is larger, capped at
// the model's output ceiling.
func (c *Coordinator) budget(model string, n, perLessonTokens int) int {
	b := c.cfg.BaseTokensPerLesson * n
	if est := int(float64(perLessonTokens*n) * c.cfg.TokenDiscount); est > b {
		b = est
	}
	if ceil := c.llmCfg.ModelCeiling(model); b > ceil {
		b = ceil
	}
	return b
}
