package paths

import (
	"fmt"
	"strings"

	"lessonforge/internal/llm"
)

// PathSchema is the structured-output schema for a whole-course level map.
var PathSchema = &llm.Schema{
	Name:        "learning-path",
	Description: "A course-spanning learning path of topics and subtopics",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subject": map[string]any{"type": "string"},
			"course":  map[string]any{"type": "string"},
			"topics": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
						"subtopics": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"name":            map[string]any{"type": "string"},
									"miniLessonCount": map[string]any{"type": "integer"},
									"applications": map[string]any{
										"type":  "array",
										"items": map[string]any{"type": "string"},
									},
								},
								"required": []any{"name", "miniLessonCount", "applications"},
							},
						},
						"completed": map[string]any{"type": "boolean"},
					},
					"required": []any{"name", "subtopics", "completed"},
				},
			},
			"crossSubjects": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"persona": map[string]any{"type": "string"},
		},
		"required":             []any{"subject", "course", "topics", "crossSubjects", "persona"},
		"additionalProperties": false,
	},
}

const pathSystemPrompt = `You are a curriculum designer building a complete learning path for a self-paced platform. Order topics from foundations to advanced material, each broken into small teachable subtopics. Respond with a single JSON object and nothing else.`

const pathPlainSuffix = `

Respond with a single JSON object using exactly these fields:
{"subject": "...", "course": "...", "topics": [{"name": "...", "subtopics": [{"name": "...", "miniLessonCount": 3, "applications": ["..."]}], "completed": false}], "crossSubjects": ["..."], "persona": "..."}
Do not wrap the JSON in markdown fences or add commentary.`

func buildPathUserMessage(subject, course string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Subject: %s\n", subject))
	b.WriteString(fmt.Sprintf("Course: %s\n", course))

	b.WriteString(`
Instructions:
1. Produce 5-8 topics in teaching order, each with 2-5 subtopics.
2. Give every subtopic a miniLessonCount between 2 and 5 and at least one real-world application.
3. Mark every topic as not completed.
4. List up to 3 related subjects in crossSubjects.
5. Describe the ideal tutoring persona for this course in one sentence.`)

	return b.String()
}
