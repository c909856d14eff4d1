package lessons

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lessonforge/internal/config"
	"lessonforge/internal/llm"
)

// ErrUsageLimitExceeded indicates the user's running spend crossed the
// configured ceiling. Fatal for the request; no fallback substitutes.
type ErrUsageLimitExceeded struct {
	UserID     string
	SpentUSD   float64
	CeilingUSD float64
}

func (e *ErrUsageLimitExceeded) Error() string {
	return fmt.Sprintf("usage limit exceeded for user %q: spent $%.4f of $%.4f",
		e.UserID, e.SpentUSD, e.CeilingUSD)
}

// SpendLedger reports a user's accumulated spend. Implemented by the
// store layer over the usage ledger.
type SpendLedger interface {
	SpendSince(ctx context.Context, userID string, since time.Time) (float64, error)
}

// Service is the top-level lesson generation pipeline: quota gate,
// context compression, routing, orchestration, verification, and
// deterministic fallback convergence.
type Service struct {
	cfg        config.Config
	registry   *llm.Registry
	orch       *Orchestrator
	verifier   *Verifier
	compressor *Compressor
	batch      *Coordinator
	ledger     SpendLedger
	log        *zap.Logger
}

// NewService wires the pipeline. ledger may be nil, which disables the
// spend gate regardless of configuration.
func NewService(cfg config.Config, registry *llm.Registry, ledger SpendLedger, log *zap.Logger) (*Service, error) {
	aux, err := registry.Aux()
	if err != nil {
		return nil, fmt.Errorf("no auxiliary route available: %w", err)
	}

	s := &Service{
		cfg:        cfg,
		registry:   registry,
		orch:       NewOrchestrator(cfg.Pipeline, log),
		verifier:   NewVerifier(aux, cfg.Pipeline, log),
		compressor: NewCompressor(aux, cfg.Compression, log),
		ledger:     ledger,
		log:        log,
	}
	s.batch = NewCoordinator(cfg.Batch, cfg.LLM, s.generateConverged, log)
	return s, nil
}

// Generate produces one lesson for the request. The only errors it
// returns are fatal ones: missing provider credentials and the spend
// ceiling. Every other failure converges to the deterministic fallback.
func (s *Service) Generate(ctx context.Context, req Request) (*Lesson, []Attempt, error) {
	if err := s.gate(ctx); err != nil {
		return nil, nil, err
	}

	route, err := s.registry.Resolve(req.Tier, req.Speed)
	if err != nil {
		return nil, nil, err
	}

	lesson, attempts := s.generate(ctx, route, req)
	return lesson, attempts, nil
}

// GenerateBatch produces one lesson per request. Requests share a
// subject and topic. Gate and route resolution happen once up front;
// individual failures converge to fallback lessons.
func (s *Service) GenerateBatch(ctx context.Context, reqs []Request) ([]*Lesson, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	if err := s.gate(ctx); err != nil {
		return nil, err
	}

	route, err := s.registry.Resolve(reqs[0].Tier, reqs[0].Speed)
	if err != nil {
		return nil, err
	}

	return s.batch.Generate(ctx, route, reqs, s.maxTokens(route.Model)), nil
}

// generate runs one orchestration for a resolved route and converges on
// the fallback when the pipeline or the verification gate gives up.
func (s *Service) generate(ctx context.Context, route llm.Route, req Request) (*Lesson, []Attempt) {
	ctx = llm.WithPurpose(ctx, "lesson")

	contextText := s.compressor.Compress(ctx, req.StructuredContext)
	prompts := BuildLessonPrompts(req, contextText)

	lesson, attempts, err := s.orch.Run(ctx, route, req, prompts, s.maxTokens(route.Model))
	if err != nil {
		s.log.Warn("orchestration exhausted, using fallback lesson",
			zap.String("topic", req.Topic), zap.Error(err))
		return Fallback(req), attempts
	}

	if _, ok := s.verifier.Verify(ctx, lesson, req); !ok {
		s.log.Warn("verification rejected candidate, using fallback lesson",
			zap.String("topic", req.Topic))
		return Fallback(req), attempts
	}

	return lesson, attempts
}

// generateConverged adapts generate to the batch coordinator's
// SingleGenerator shape.
func (s *Service) generateConverged(ctx context.Context, req Request) *Lesson {
	route, err := s.registry.Resolve(req.Tier, req.Speed)
	if err != nil {
		// Route resolution succeeded for the batch as a whole; a per-item
		// failure here means config changed mid-flight. Fall back.
		s.log.Warn("route resolution failed mid-batch", zap.Error(err))
		return Fallback(req)
	}
	lesson, _ := s.generate(ctx, route, req)
	return lesson
}

// gate enforces the per-user spend ceiling before any provider call.
func (s *Service) gate(ctx context.Context) error {
	ceiling := s.cfg.Usage.CostCeilingUSD
	if ceiling <= 0 || s.ledger == nil {
		return nil
	}

	userID := llm.UserFrom(ctx)
	if userID == "" {
		return nil
	}

	since := time.Now().Add(-s.cfg.Usage.Window)
	spent, err := s.ledger.SpendSince(ctx, userID, since)
	if err != nil {
		// An unreadable ledger must not block generation.
		s.log.Warn("spend lookup failed, skipping gate", zap.Error(err))
		return nil
	}
	if spent >= ceiling {
		return &ErrUsageLimitExceeded{UserID: userID, SpentUSD: spent, CeilingUSD: ceiling}
	}
	return nil
}

// maxTokens clamps the configured per-lesson budget to the model ceiling.
func (s *Service) maxTokens(model string) int {
	n := s.cfg.Pipeline.MaxTokens
	if ceil := s.cfg.LLM.ModelCeiling(model); n > ceil {
		n = ceil
	}
	return n
}
