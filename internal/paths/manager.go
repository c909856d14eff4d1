package paths

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"lessonforge/internal/config"
	"lessonforge/internal/store"
)

// PathGenerator produces a learning path. Satisfied by Generator.
type PathGenerator interface {
	Generate(ctx context.Context, userID, subject, course string) (*LearningPath, error)
}

// PathStore is the durable side of the generation lock. Satisfied by
// store.PathRepo. The conditional claim is the authoritative lock; the
// in-process flight map only collapses duplicates within one instance.
type PathStore interface {
	Claim(ctx context.Context, userID, subject, course string, staleness time.Duration) (bool, error)
	Get(ctx context.Context, userID, subject string) (*store.LearningPathRecord, error)
	MarkReady(ctx context.Context, userID, subject string, payload []byte) error
	MarkFailed(ctx context.Context, userID, subject, msg string) error
}

// Manager deduplicates concurrent generation of the same (user, subject)
// learning path and serves cached results.
type Manager struct {
	repo PathStore
	gen  PathGenerator
	cfg  config.PathsConfig
	log  *zap.Logger

	mu       sync.Mutex
	inflight map[string]*flight
}

// flight is one in-process generation promise. Waiters block on done and
// then read path/err.
type flight struct {
	done chan struct{}
	path *LearningPath
	err  error
}

// NewManager builds the lock and cache manager.
func NewManager(repo PathStore, gen PathGenerator, cfg config.PathsConfig, log *zap.Logger) *Manager {
	return &Manager{
		repo:     repo,
		gen:      gen,
		cfg:      cfg,
		log:      log,
		inflight: make(map[string]*flight),
	}
}

// GetOrGenerate returns the learning path for (userID, subject),
// generating it when no usable cached result exists. Callers racing an
// in-flight generation either join it (same process) or receive
// ErrStillGenerating (another process holds the durable claim).
func (m *Manager) GetOrGenerate(ctx context.Context, userID, subject, course string) (*LearningPath, error) {
	rec, err := m.repo.Get(ctx, userID, subject)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		switch rec.Status {
		case store.PathReady:
			if rec.Course == course {
				var path LearningPath
				if uerr := json.Unmarshal(rec.Payload, &path); uerr == nil {
					return &path, nil
				}
				// Corrupt payload: treat as absent and regenerate.
				m.log.Warn("stored learning path unreadable, regenerating",
					zap.String("user_id", userID), zap.String("subject", subject))
			}
		case store.PathPending:
			if time.Since(rec.UpdatedAt) < m.cfg.Staleness {
				return nil, &ErrStillGenerating{RetryAfter: m.cfg.RetryAfter}
			}
		}
	}

	key := userID + "/" + subject

	m.mu.Lock()
	if f, ok := m.inflight[key]; ok {
		m.mu.Unlock()
		select {
		case <-f.done:
			return f.path, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f := &flight{done: make(chan struct{})}
	m.inflight[key] = f
	m.mu.Unlock()

	f.path, f.err = m.run(ctx, userID, subject, course)
	close(f.done)

	m.mu.Lock()
	delete(m.inflight, key)
	m.mu.Unlock()

	return f.path, f.err
}

// run claims the durable slot, generates, and persists the outcome.
func (m *Manager) run(ctx context.Context, userID, subject, course string) (*LearningPath, error) {
	claimed, err := m.repo.Claim(ctx, userID, subject, course, m.cfg.Staleness)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, &ErrStillGenerating{RetryAfter: m.cfg.RetryAfter}
	}

	path, err := m.gen.Generate(ctx, userID, subject, course)
	if err != nil {
		if ferr := m.repo.MarkFailed(ctx, userID, subject, err.Error()); ferr != nil {
			m.log.Warn("failed to record path generation failure", zap.Error(ferr))
		}
		return nil, err
	}

	payload, err := json.Marshal(path)
	if err != nil {
		if ferr := m.repo.MarkFailed(ctx, userID, subject, err.Error()); ferr != nil {
			m.log.Warn("failed to record path generation failure", zap.Error(ferr))
		}
		return nil, err
	}
	if err := m.repo.MarkReady(ctx, userID, subject, payload); err != nil {
		// The path exists; a persistence failure only costs the cache.
		m.log.Warn("failed to persist ready learning path", zap.Error(err))
	}

	return path, nil
}
