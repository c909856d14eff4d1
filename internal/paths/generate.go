package paths

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"lessonforge/internal/config"
	"lessonforge/internal/lessons"
	"lessonforge/internal/llm"
	"lessonforge/internal/store"
)

// OutlineCache stores course outlines shared across users. Satisfied by
// store.OutlineRepo.
type OutlineCache interface {
	Get(ctx context.Context, subject, course string) (*store.CourseOutline, error)
	Put(ctx context.Context, subject, course string, payload []byte) error
}

// Generator produces learning paths, seeding from the shared outline
// cache when a previous generation for the same course exists.
type Generator struct {
	registry *llm.Registry
	outlines OutlineCache
	cfg      config.PathsConfig
	attempts int
	backoff  llm.Backoff
	log      *zap.Logger
}

// NewGenerator builds a path generator. outlines may be nil, which
// disables outline seeding and caching.
func NewGenerator(registry *llm.Registry, outlines OutlineCache, cfg config.PathsConfig, log *zap.Logger) *Generator {
	return &Generator{
		registry: registry,
		outlines: outlines,
		cfg:      cfg,
		attempts: 2,
		backoff:  llm.DefaultBackoff(),
		log:      log,
	}
}

// Generate builds the learning path for (subject, course). A cached
// outline short-circuits the model call entirely: the shared topic
// structure is reused and only per-user state starts fresh.
func (g *Generator) Generate(ctx context.Context, userID, subject, course string) (*LearningPath, error) {
	ctx = llm.WithPurpose(ctx, "path")

	if seeded := g.fromOutline(ctx, subject, course); seeded != nil {
		return seeded, nil
	}

	route, err := g.registry.Resolve(llm.TierStandard, llm.SpeedQuality)
	if err != nil {
		return nil, err
	}

	path, err := g.generate(ctx, route, subject, course)
	if err != nil {
		return nil, err
	}

	if g.outlines != nil {
		if payload, merr := json.Marshal(path.Topics); merr == nil {
			if perr := g.outlines.Put(ctx, subject, course, payload); perr != nil {
				g.log.Warn("outline cache write failed",
					zap.String("subject", subject), zap.String("course", course), zap.Error(perr))
			}
		}
	}

	return path, nil
}

// fromOutline builds a fresh path from the cached course outline, or
// returns nil when no usable outline exists.
func (g *Generator) fromOutline(ctx context.Context, subject, course string) *LearningPath {
	if g.outlines == nil {
		return nil
	}
	rec, err := g.outlines.Get(ctx, subject, course)
	if err != nil || rec == nil {
		return nil
	}

	var topics []Topic
	if json.Unmarshal(rec.Payload, &topics) != nil || len(topics) == 0 {
		return nil
	}
	for i := range topics {
		topics[i].Completed = false
	}

	g.log.Info("learning path seeded from cached outline",
		zap.String("subject", subject), zap.String("course", course))
	return &LearningPath{
		Subject: subject,
		Course:  course,
		Topics:  topics,
		Persona: fmt.Sprintf("A patient %s tutor who builds up from fundamentals.", subject),
	}
}

// generate runs the model call with a short retry loop, downgrading from
// structured output to plain text when the provider rejects the format.
func (g *Generator) generate(ctx context.Context, route llm.Route, subject, course string) (*LearningPath, error) {
	user := buildPathUserMessage(subject, course)

	plain := false
	var lastErr error

	for attempt := 0; attempt < g.attempts; attempt++ {
		req := llm.Request{
			System:      pathSystemPrompt,
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: user}},
			MaxTokens:   g.cfg.MaxTokens,
			Temperature: 0.4,
		}
		if plain {
			req.Mode = llm.ModePlain
			req.Messages[0].Content += pathPlainSuffix
		} else {
			req.Mode = llm.ModeSchema
			req.Schema = PathSchema
		}

		resp, err := route.Provider.Complete(ctx, req)
		if err != nil {
			lastErr = err
			switch {
			case llm.Retryable(err):
				if serr := llm.Sleep(ctx, g.backoff.Wait(attempt, err)); serr != nil {
					return nil, serr
				}
			case llm.FormatRejected(err):
				plain = true
			default:
				return nil, err
			}
			continue
		}

		path, perr := parsePath(resp, subject, course)
		if perr != nil {
			lastErr = perr
			plain = true
			continue
		}
		return path, nil
	}

	return nil, fmt.Errorf("path generation exhausted: %w", lastErr)
}

func parsePath(resp *llm.Response, subject, course string) (*LearningPath, error) {
	raw, err := lessons.ExtractJSON(lessons.ExtractText(resp))
	if err != nil {
		return nil, err
	}

	var path LearningPath
	if err := json.Unmarshal(raw, &path); err != nil {
		return nil, err
	}
	if len(path.Topics) == 0 {
		return nil, fmt.Errorf("generated path has no topics")
	}

	if path.Subject == "" {
		path.Subject = subject
	}
	if path.Course == "" {
		path.Course = course
	}
	path.Progress = 0
	for i := range path.Topics {
		path.Topics[i].Completed = false
	}
	return &path, nil
}
