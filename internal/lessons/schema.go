package lessons

import (
	"fmt"

	"lessonforge/internal/llm"
)

// questionSchema is the JSON schema for a single question.
var questionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"prompt": map[string]any{
			"type":        "string",
			"description": "The question text",
		},
		"choices": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Exactly 4 distinct answer choices",
		},
		"correctIndex": map[string]any{
			"type":        "integer",
			"description": "Index of the correct choice, 0-3",
		},
		"explanation": map[string]any{
			"type":        "string",
			"description": "Why the correct answer is right, at most 280 characters",
		},
	},
	"required":             []any{"prompt", "choices", "correctIndex", "explanation"},
	"additionalProperties": false,
}

// lessonProperties is shared between the single-lesson schema and the
// batch tool schema.
var lessonProperties = map[string]any{
	"id": map[string]any{
		"type":        "string",
		"description": "Stable lesson identifier, may be empty",
	},
	"subject": map[string]any{
		"type": "string",
	},
	"topic": map[string]any{
		"type": "string",
	},
	"title": map[string]any{
		"type":        "string",
		"description": "Short lesson title (3-10 words)",
	},
	"content": map[string]any{
		"type":        "string",
		"description": "The lesson body: 80-105 words, ending on sentence punctuation",
	},
	"difficulty": map[string]any{
		"type": "string",
		"enum": []any{"intro", "easy", "medium", "hard"},
	},
	"questions": map[string]any{
		"type":        "array",
		"items":       questionSchema,
		"description": "Exactly 3 comprehension questions",
	},
}

var lessonRequired = []any{"subject", "topic", "title", "content", "difficulty", "questions"}

// LessonSchema is the canonical structured-output schema for one lesson.
var LessonSchema = &llm.Schema{
	Name:        "lesson",
	Description: "A micro-lesson with a short body and 3 multiple-choice questions",
	Definition: map[string]any{
		"type":                 "object",
		"properties":           lessonProperties,
		"required":             lessonRequired,
		"additionalProperties": false,
	},
}

// VerificationSchema is the structured-output schema for the verification
// gate's verdict.
var VerificationSchema = &llm.Schema{
	Name:        "lesson-verification",
	Description: "Verdict on whether a candidate lesson matches the requested topic",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"valid": map[string]any{
				"type":        "boolean",
				"description": "True when the lesson is topically and factually aligned",
			},
			"reasons": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Short reasons when valid is false; empty otherwise",
			},
		},
		"required":             []any{"valid", "reasons"},
		"additionalProperties": false,
	},
}

// CompressionSchema is the structured-output schema for semantic context
// compression.
var CompressionSchema = &llm.Schema{
	Name:        "context-summary",
	Description: "Compressed summary of learner history and preferences",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "Condensed context preserving named topics, scores, and preferences",
			},
		},
		"required":             []any{"summary"},
		"additionalProperties": false,
	},
}

// BatchTool builds the function-call tool whose parameters accept exactly
// n lessons. Used for true batching.
func BatchTool(n int) *llm.Tool {
	return &llm.Tool{
		Name:        "submit_lessons",
		Description: fmt.Sprintf("Submit exactly %d generated lessons", n),
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"lessons": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "object", "properties": lessonProperties, "required": lessonRequired},
					"description": fmt.Sprintf("Exactly %d lessons, one per requested variation", n),
				},
			},
			"required": []any{"lessons"},
		},
	}
}
