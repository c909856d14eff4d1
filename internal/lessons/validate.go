package lessons

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationError describes why a candidate lesson failed the contract.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("lesson field %q: %s", e.Field, e.Message)
}

// ParseLesson decodes an extracted JSON object into a Lesson.
func ParseLesson(raw json.RawMessage) (*Lesson, error) {
	var l Lesson
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("decode lesson: %w", err)
	}
	return &l, nil
}

// Validate enforces the Lesson contract: bounded content, exactly 3
// questions, each with 4 distinct non-empty choices and an in-range
// correct index.
func Validate(l *Lesson) error {
	if l.ID == "" {
		return &ValidationError{Field: "id", Message: "missing"}
	}
	if l.Subject == "" {
		return &ValidationError{Field: "subject", Message: "missing"}
	}
	if l.Title == "" {
		return &ValidationError{Field: "title", Message: "missing"}
	}
	if !ValidDifficulty(l.Difficulty) {
		return &ValidationError{Field: "difficulty", Message: fmt.Sprintf("unknown level %q", l.Difficulty)}
	}

	words := len(strings.Fields(l.Content))
	if words < ContentMinWords || words > ContentMaxWords {
		return &ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("%d words, want %d-%d", words, ContentMinWords, ContentMaxWords),
		}
	}
	if len(l.Content) > ContentMaxChars {
		return &ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("%d chars exceeds %d", len(l.Content), ContentMaxChars),
		}
	}

	if len(l.Questions) != QuestionCount {
		return &ValidationError{
			Field:   "questions",
			Message: fmt.Sprintf("%d questions, want exactly %d", len(l.Questions), QuestionCount),
		}
	}

	for i, q := range l.Questions {
		if err := validateQuestion(q); err != nil {
			return &ValidationError{
				Field:   fmt.Sprintf("questions[%d]", i),
				Message: err.Error(),
			}
		}
	}

	return nil
}

func validateQuestion(q Question) error {
	if q.Prompt == "" {
		return fmt.Errorf("prompt is empty")
	}
	if len(q.Choices) != ChoiceCount {
		return fmt.Errorf("%d choices, want exactly %d", len(q.Choices), ChoiceCount)
	}
	seen := make(map[string]bool, ChoiceCount)
	for _, c := range q.Choices {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("empty choice")
		}
		if seen[c] {
			return fmt.Errorf("duplicate choice %q", c)
		}
		seen[c] = true
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= ChoiceCount {
		return fmt.Errorf("correctIndex %d out of range", q.CorrectIndex)
	}
	if len(q.Explanation) > ExplanationMaxLen {
		return fmt.Errorf("explanation %d chars exceeds %d", len(q.Explanation), ExplanationMaxLen)
	}
	return nil
}
