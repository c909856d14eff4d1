package lessons

import (
	"fmt"
	"strings"
)

const lessonSystemPrompt = `You are an expert tutor writing micro-lessons for a self-paced learning platform. Every lesson is a short, self-contained explanation followed by exactly 3 multiple-choice questions. Respond with a single JSON object and nothing else.`

const plainFormatInstructions = `
Respond with a single JSON object using exactly these fields:
{"id": "", "subject": "...", "topic": "...", "title": "...", "content": "...", "difficulty": "intro|easy|medium|hard", "questions": [{"prompt": "...", "choices": ["...", "...", "...", "..."], "correctIndex": 0, "explanation": "..."}]}
Do not wrap the JSON in markdown fences or add commentary.`

// Prompts is the assembled prompt pair for one orchestration run.
// UserNoContext is the user message with structured context removed, used
// by the context-dropping variant.
type Prompts struct {
	System        string
	User          string
	UserNoContext string
	HasContext    bool
}

// BuildLessonPrompts assembles the system and user messages for a request.
// The context argument is the (possibly compressed) structured context.
func BuildLessonPrompts(req Request, context string) Prompts {
	base := buildLessonUserMessage(req, "")
	p := Prompts{
		System:        lessonSystemPrompt,
		User:          base,
		UserNoContext: base,
	}
	if context != "" {
		p.User = buildLessonUserMessage(req, context)
		p.HasContext = true
	}
	return p
}

func buildLessonUserMessage(req Request, context string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Subject: %s\n", req.Subject))
	b.WriteString(fmt.Sprintf("Topic: %s\n", req.Topic))
	b.WriteString(fmt.Sprintf("Difficulty: %s\n", req.Difficulty))
	if req.Pace != "" {
		b.WriteString(fmt.Sprintf("Pace: %s\n", req.Pace))
	}
	if req.Accuracy > 0 {
		b.WriteString(fmt.Sprintf("Recent quiz accuracy: %.0f%%\n", req.Accuracy))
	}

	if len(req.AvoidTitles) > 0 {
		b.WriteString("\nDo not repeat these lessons:\n")
		for _, t := range req.AvoidTitles {
			b.WriteString(fmt.Sprintf("- %s\n", t))
		}
	}

	if context != "" {
		b.WriteString("\nLearner context:\n")
		b.WriteString(context)
		b.WriteString("\n")
	}

	b.WriteString(`
Instructions:
1. Write the lesson body in 80-105 words. End on a complete sentence.
2. Keep the language direct and concrete. One worked idea beats three vague ones.
3. Write exactly 3 multiple-choice questions, each with exactly 4 distinct choices and one correct answer.
4. Each explanation must fit in 280 characters.
5. Match the requested difficulty level.`)

	return b.String()
}

// PlainModeSuffix is appended to the user message when the variant uses
// plain-text mode, since no response_format carries the contract.
func PlainModeSuffix() string {
	return plainFormatInstructions
}

const compressionSystemPrompt = `You are compressing a learner's history for reuse inside another prompt. Preserve every named topic, score, and stated preference. Never invent details.`

func buildCompressionUserMessage(context string, targetTokens int) string {
	var b strings.Builder

	b.WriteString("Context:\n")
	b.WriteString(context)
	b.WriteString(fmt.Sprintf(`

Instructions:
Summarize the context above in at most %d tokens. Keep:
- every subject and topic name mentioned
- quiz scores and accuracy figures
- stated preferences about pace or style
Drop pleasantries, repetition, and anything not useful for picking the next lesson.`, targetTokens))

	return b.String()
}

const batchSystemPrompt = `You are an expert tutor writing micro-lessons for a self-paced learning platform. You will produce several distinct lessons on the same topic in one pass, submitted through the provided function. Lessons must not repeat each other's examples or questions.`

func buildBatchUserMessage(reqs []Request) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Subject: %s\n", reqs[0].Subject))
	b.WriteString(fmt.Sprintf("Topic: %s\n", reqs[0].Topic))
	b.WriteString(fmt.Sprintf("Lessons requested: %d\n\n", len(reqs)))

	for i, r := range reqs {
		b.WriteString(fmt.Sprintf("Lesson %d: difficulty %s", i+1, r.Difficulty))
		if r.Pace != "" {
			b.WriteString(fmt.Sprintf(", pace %s", r.Pace))
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf(`
Instructions:
1. Call submit_lessons exactly once with %d lessons.
2. Each lesson body is 80-105 words ending on a complete sentence.
3. Each lesson has exactly 3 multiple-choice questions with exactly 4 distinct choices.
4. Vary the angle of each lesson so they complement rather than repeat each other.`, len(reqs)))

	return b.String()
}

const verifySystemPrompt = `You are reviewing a generated micro-lesson for topical and factual alignment. Judge only whether the lesson teaches the requested topic correctly at the requested level. It is deliberately short; brevity is not a defect.`

func buildVerifyUserMessage(l *Lesson, req Request) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Requested subject: %s\n", req.Subject))
	b.WriteString(fmt.Sprintf("Requested topic: %s\n", req.Topic))
	b.WriteString(fmt.Sprintf("Requested difficulty: %s\n\n", req.Difficulty))

	// A condensed summary, not the full lesson text.
	b.WriteString(fmt.Sprintf("Candidate title: %s\n", l.Title))
	b.WriteString(fmt.Sprintf("Candidate opening: %s\n", firstSentences(l.Content, 2)))
	b.WriteString("Question prompts:\n")
	for _, q := range l.Questions {
		b.WriteString(fmt.Sprintf("- %s\n", q.Prompt))
	}

	b.WriteString(`
Respond with {"valid": true|false, "reasons": [...]}. Set valid to false only for genuine topical or factual problems and name each one briefly.`)

	return b.String()
}

// firstSentences returns the first n sentences of s, or all of s when it
// has fewer.
func firstSentences(s string, n int) string {
	count := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '!', '?':
			count++
			if count == n {
				return strings.TrimSpace(s[:i+1])
			}
		}
	}
	return strings.TrimSpace(s)
}
