package lessons

import "lessonforge/internal/llm"

// Difficulty is the lesson difficulty level.
type Difficulty string

const (
	DifficultyIntro  Difficulty = "intro"
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ValidDifficulty reports whether d is one of the four known levels.
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyIntro, DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Lesson is the pipeline's output contract. Immutable once returned;
// persistence is the caller's concern.
type Lesson struct {
	ID         string     `json:"id"`
	Subject    string     `json:"subject"`
	Topic      string     `json:"topic"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Difficulty Difficulty `json:"difficulty"`
	Questions  []Question `json:"questions"`

	// Optional media attachments. Permitted by the canonical schema but
	// never required and never populated by this pipeline.
	MediaURL  string `json:"mediaUrl,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

// Question is one multiple-choice check inside a lesson.
type Question struct {
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// Lesson contract bounds.
const (
	ContentMinWords   = 80
	ContentMaxWords   = 105
	ContentMaxChars   = 900
	QuestionCount     = 3
	ChoiceCount       = 4
	ExplanationMaxLen = 280
)

// Request describes one lesson generation call. Transient.
type Request struct {
	Subject    string
	Topic      string
	Pace       string
	Accuracy   float64 // recent quiz accuracy, 0-100
	Difficulty Difficulty

	// AvoidIDs and AvoidTitles steer the model away from lessons the
	// learner has already seen.
	AvoidIDs    []string
	AvoidTitles []string

	// StructuredContext is a compact learner-history payload injected
	// into the prompt. May be dropped by later orchestrator variants.
	StructuredContext string

	Tier  llm.Tier
	Speed llm.Speed
}

// Attempt records one provider call inside an orchestration run.
// Retained only for diagnostics.
type Attempt struct {
	Variant        int
	Mode           llm.ResponseMode
	ContextDropped bool
	Outcome        string // "success", "truncated", "error"
	TokensUsed     int
}

// Attempt outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeTruncated = "truncated"
	OutcomeError     = "error"
)

// VerificationResult is the verdict of the verification gate.
type VerificationResult struct {
	Valid   bool     `json:"valid"`
	Reasons []string `json:"reasons"`
}
