package lessons

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// maxDisplayLen caps the subject/topic fragments interpolated into the
// fallback templates so arbitrary input cannot push the content past its
// character ceiling.
const maxDisplayLen = 40

// Fallback builds a deterministic, template-based lesson for the request.
// It never calls a provider and always satisfies the lesson contract, so
// the pipeline can converge on it when every model attempt failed.
func Fallback(req Request) *Lesson {
	subject := displayName(req.Subject, "your subject")
	topic := displayName(req.Topic, subject)

	difficulty := req.Difficulty
	if !ValidDifficulty(difficulty) {
		difficulty = DifficultyEasy
	}

	content := fmt.Sprintf(
		"This lesson introduces %s, a topic within %s. "+
			"Start by identifying the core idea: what problem does %s address, and what would change if it did not exist? "+
			"Write that answer down in one sentence before moving on. "+
			"Next, connect the idea to something you already know from %s, since new concepts stick best when anchored to familiar ones. "+
			"Finally, work through one small, concrete example on your own. "+
			"A single worked example reveals more than rereading a definition ever will. "+
			"When the questions below feel straightforward, you are ready to go deeper.",
		topic, subject, topic, subject)

	l := &Lesson{
		ID:         uuid.NewString(),
		Subject:    req.Subject,
		Topic:      req.Topic,
		Title:      fmt.Sprintf("Getting Started with %s", topic),
		Content:    fitContent(content),
		Difficulty: difficulty,
		Questions: []Question{
			{
				Prompt: fmt.Sprintf("What is the most effective first step when learning %s?", topic),
				Choices: []string{
					"Identify the core idea and state it in one sentence",
					"Memorize every definition before reading further",
					"Skip directly to the hardest problems",
					"Wait until the topic appears in a later lesson",
				},
				CorrectIndex: 0,
				Explanation:  "Stating the core idea in your own words forces you to engage with the concept instead of passively reading it.",
			},
			{
				Prompt: "Why does connecting a new concept to familiar material help?",
				Choices: []string{
					"New ideas stick best when anchored to things you already know",
					"It lets you skip the new material entirely",
					"Familiar material replaces the need for practice",
					"It makes the lesson shorter",
				},
				CorrectIndex: 0,
				Explanation:  "Anchoring new ideas to existing knowledge builds the associations that make recall reliable.",
			},
			{
				Prompt: fmt.Sprintf("After reading about %s, what should you do next?", topic),
				Choices: []string{
					"Work through one small, concrete example yourself",
					"Reread the definition several more times",
					"Move on without checking your understanding",
					"Summarize a different topic instead",
				},
				CorrectIndex: 0,
				Explanation:  "A single worked example exposes gaps in understanding that rereading never reveals.",
			},
		},
	}

	return l
}

// displayName sanitizes an arbitrary subject/topic string into something
// safe to interpolate into template prose: control characters stripped,
// whitespace collapsed, length capped.
func displayName(s, fallback string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case unicode.IsControl(r):
			// drop
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return fallback
	}
	if len(out) > maxDisplayLen {
		runes := []rune(out)
		for len(string(runes)) > maxDisplayLen {
			runes = runes[:len(runes)-1]
		}
		out = strings.TrimSpace(string(runes))
		if out == "" {
			return fallback
		}
	}
	return out
}
