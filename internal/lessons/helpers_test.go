package lessons

import (
	"encoding/json"
	"strings"
	"testing"

	"lessonforge/internal/config"
)

// testContent returns a 90-word body ending on a period.
func testContent() string {
	sentence := "The quick brown fox jumps over the lazy sleeping dog."
	parts := make([]string, 9)
	for i := range parts {
		parts[i] = sentence
	}
	return strings.Join(parts, " ")
}

func testQuestion(n string) Question {
	return Question{
		Prompt:       "Which option is correct for case " + n + "?",
		Choices:      []string{"Option A " + n, "Option B " + n, "Option C " + n, "Option D " + n},
		CorrectIndex: 0,
		Explanation:  "Option A is correct because it matches the definition given in the lesson.",
	}
}

func validLesson() *Lesson {
	return &Lesson{
		ID:         "test-lesson-1",
		Subject:    "Algebra",
		Topic:      "Algebra > Factoring",
		Title:      "Factoring Quadratic Expressions",
		Content:    testContent(),
		Difficulty: DifficultyEasy,
		Questions:  []Question{testQuestion("1"), testQuestion("2"), testQuestion("3")},
	}
}

func validLessonJSON(t *testing.T) []byte {
	t.Helper()
	raw, err := json.Marshal(validLesson())
	if err != nil {
		t.Fatalf("marshal lesson: %v", err)
	}
	return raw
}

func testRequest() Request {
	return Request{
		Subject:    "Algebra",
		Topic:      "Algebra > Factoring",
		Difficulty: DifficultyEasy,
	}
}

func testPipelineCfg() config.PipelineConfig {
	cfg := config.Default().Pipeline
	// Keep backoff out of test wall time.
	cfg.BackoffBase = 0
	cfg.BackoffMax = 0
	return cfg
}
