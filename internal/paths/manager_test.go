package paths

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"lessonforge/internal/config"
	"lessonforge/internal/store"
)

// memPathStore mimics the conditional-claim semantics of the durable
// store in memory.
type memPathStore struct {
	mu   sync.Mutex
	recs map[string]*store.LearningPathRecord
}

func newMemPathStore() *memPathStore {
	return &memPathStore{recs: make(map[string]*store.LearningPathRecord)}
}

func (m *memPathStore) key(userID, subject string) string { return userID + "/" + subject }

func (m *memPathStore) Claim(_ context.Context, userID, subject, course string, staleness time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	rec, ok := m.recs[m.key(userID, subject)]
	if ok && rec.Status == store.PathPending && now.Sub(rec.UpdatedAt) < staleness {
		return false, nil
	}

	m.recs[m.key(userID, subject)] = &store.LearningPathRecord{
		UserID:    userID,
		Subject:   subject,
		Course:    course,
		Status:    store.PathPending,
		UpdatedAt: now,
	}
	return true, nil
}

func (m *memPathStore) Get(_ context.Context, userID, subject string) (*store.LearningPathRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[m.key(userID, subject)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memPathStore) MarkReady(_ context.Context, userID, subject string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.recs[m.key(userID, subject)]; ok {
		rec.Status = store.PathReady
		rec.Payload = payload
		rec.UpdatedAt = time.Now()
	}
	return nil
}

func (m *memPathStore) MarkFailed(_ context.Context, userID, subject, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.recs[m.key(userID, subject)]; ok {
		rec.Status = store.PathFailed
		rec.LastError = msg
		rec.UpdatedAt = time.Now()
	}
	return nil
}

// stubGenerator counts runs and optionally delays to widen race windows.
type stubGenerator struct {
	runs  atomic.Int32
	delay time.Duration
	err   error
}

func (g *stubGenerator) Generate(_ context.Context, _, subject, course string) (*LearningPath, error) {
	g.runs.Add(1)
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.err != nil {
		return nil, g.err
	}
	return &LearningPath{
		Subject: subject,
		Course:  course,
		Topics: []Topic{{
			Name:      "Foundations",
			Subtopics: []Subtopic{{Name: "Basics", MiniLessonCount: 3, Applications: []string{"daily life"}}},
		}},
		Persona: "A patient tutor.",
	}, nil
}

func newTestManager(repo PathStore, gen PathGenerator) *Manager {
	return NewManager(repo, gen, config.Default().Paths, zap.NewNop())
}

func TestManager_GeneratesAndCaches(t *testing.T) {
	repo := newMemPathStore()
	gen := &stubGenerator{}
	m := newTestManager(repo, gen)
	ctx := context.Background()

	path, err := m.GetOrGenerate(ctx, "user-1", "Algebra", "Algebra I")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if path.Subject != "Algebra" {
		t.Errorf("subject = %q", path.Subject)
	}

	// Second call is served from the ready record.
	again, err := m.GetOrGenerate(ctx, "user-1", "Algebra", "Algebra I")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if gen.runs.Load() != 1 {
		t.Errorf("generator ran %d times, want 1", gen.runs.Load())
	}
	if again.Course != "Algebra I" {
		t.Errorf("course = %q", again.Course)
	}
}

func TestManager_CourseMismatchRegenerates(t *testing.T) {
	repo := newMemPathStore()
	gen := &stubGenerator{}
	m := newTestManager(repo, gen)
	ctx := context.Background()

	if _, err := m.GetOrGenerate(ctx, "user-1", "Algebra", "Algebra I"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := m.GetOrGenerate(ctx, "user-1", "Algebra", "Algebra II"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if gen.runs.Load() != 2 {
		t.Errorf("generator ran %d times, want 2", gen.runs.Load())
	}
}

func TestManager_PendingSignalsRetry(t *testing.T) {
	repo := newMemPathStore()
	gen := &stubGenerator{}
	m := newTestManager(repo, gen)
	ctx := context.Background()

	// Simulate another process holding a fresh pending claim.
	if _, err := repo.Claim(ctx, "user-1", "Algebra", "Algebra I", time.Minute); err != nil {
		t.Fatalf("seed claim: %v", err)
	}

	_, err := m.GetOrGenerate(ctx, "user-1", "Algebra", "Algebra I")
	var pending *ErrStillGenerating
	if !errors.As(err, &pending) {
		t.Fatalf("got %v, want ErrStillGenerating", err)
	}
	if pending.RetryAfter <= 0 {
		t.Errorf("retry hint = %s", pending.RetryAfter)
	}
	if gen.runs.Load() != 0 {
		t.Errorf("generator ran behind a live claim")
	}
}

func TestManager_StalePendingReclaimed(t *testing.T) {
	repo := newMemPathStore()
	gen := &stubGenerator{}
	m := newTestManager(repo, gen)
	ctx := context.Background()

	// An abandoned pending row, older than the staleness window.
	repo.recs["user-1/Algebra"] = &store.LearningPathRecord{
		UserID:    "user-1",
		Subject:   "Algebra",
		Course:    "Algebra I",
		Status:    store.PathPending,
		UpdatedAt: time.Now().Add(-10 * time.Minute),
	}

	path, err := m.GetOrGenerate(ctx, "user-1", "Algebra", "Algebra I")
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if path == nil || gen.runs.Load() != 1 {
		t.Errorf("stale claim not reclaimed (runs=%d)", gen.runs.Load())
	}
}

func TestManager_ConcurrentCallsShareOneRun(t *testing.T) {
	repo := newMemPathStore()
	gen := &stubGenerator{delay: 50 * time.Millisecond}
	m := newTestManager(repo, gen)
	ctx := context.Background()

	const callers = 4
	results := make([]*LearningPath, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = m.GetOrGenerate(ctx, "user-1", "Algebra", "Algebra I")
		}()
	}
	wg.Wait()

	if gen.runs.Load() != 1 {
		t.Fatalf("generator ran %d times, want exactly 1", gen.runs.Load())
	}
	for i := 0; i < callers; i++ {
		var pending *ErrStillGenerating
		switch {
		case errs[i] == nil:
			if results[i].Subject != "Algebra" {
				t.Errorf("caller %d got path %+v", i, results[i])
			}
		case errors.As(errs[i], &pending):
			// Acceptable: the caller observed the in-flight claim.
		default:
			t.Errorf("caller %d: %v", i, errs[i])
		}
	}
}

func TestManager_GenerationFailureRecorded(t *testing.T) {
	repo := newMemPathStore()
	gen := &stubGenerator{err: errors.New("provider down")}
	m := newTestManager(repo, gen)
	ctx := context.Background()

	if _, err := m.GetOrGenerate(ctx, "user-1", "Algebra", "Algebra I"); err == nil {
		t.Fatal("expected generation error")
	}

	rec, err := repo.Get(ctx, "user-1", "Algebra")
	if err != nil || rec == nil {
		t.Fatalf("record missing: %v", err)
	}
	if rec.Status != store.PathFailed {
		t.Errorf("status = %q, want failed", rec.Status)
	}
	if rec.LastError == "" {
		t.Error("failure reason not recorded")
	}

	// A failed row is immediately reclaimable.
	gen.err = nil
	if _, err := m.GetOrGenerate(ctx, "user-1", "Algebra", "Algebra I"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestManager_CorruptPayloadRegenerates(t *testing.T) {
	repo := newMemPathStore()
	gen := &stubGenerator{}
	m := newTestManager(repo, gen)
	ctx := context.Background()

	repo.recs["user-1/Algebra"] = &store.LearningPathRecord{
		UserID:    "user-1",
		Subject:   "Algebra",
		Course:    "Algebra I",
		Status:    store.PathReady,
		Payload:   datatypes.JSON(`{"broken`),
		UpdatedAt: time.Now(),
	}

	path, err := m.GetOrGenerate(ctx, "user-1", "Algebra", "Algebra I")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if path == nil || gen.runs.Load() != 1 {
		t.Errorf("corrupt payload not regenerated (runs=%d)", gen.runs.Load())
	}
}
