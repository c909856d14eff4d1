package lessons

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// fillerSentences pad short content up to the word-count floor.
var fillerSentences = []string{
	"Take a moment to restate the main idea in your own words.",
	"Working through one small example at a time builds lasting understanding.",
	"Notice how each step follows directly from the one before it.",
	"A quick review of these points will make the questions easier.",
	"Try explaining this concept to someone else to test yourself.",
}

// fillerChoices pad short choice lists. Entries are appended in order
// until the list is full and distinct.
var fillerChoices = []string{
	"None of the above",
	"All of the above",
	"Not enough information",
	"Cannot be determined",
	"Both A and B",
}

// Normalize attempts low-risk repairs on a candidate lesson so it can pass
// Validate. Re-validation afterwards is attempted exactly once by the
// caller; a candidate that still fails is discarded, not retried here.
func Normalize(l *Lesson, req Request) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Subject == "" {
		l.Subject = req.Subject
	}
	if l.Topic == "" {
		l.Topic = req.Topic
	}
	if l.Title == "" {
		l.Title = fmt.Sprintf("Introduction to %s", firstNonEmpty(req.Topic, req.Subject, "the topic"))
	}
	if !ValidDifficulty(l.Difficulty) {
		if ValidDifficulty(req.Difficulty) {
			l.Difficulty = req.Difficulty
		} else {
			l.Difficulty = DifficultyEasy
		}
	}

	l.Content = fitContent(l.Content)

	// Pad or clip to exactly 3 questions.
	for len(l.Questions) < QuestionCount {
		l.Questions = append(l.Questions, fillerQuestion(l, len(l.Questions)))
	}
	l.Questions = l.Questions[:QuestionCount]

	for i := range l.Questions {
		normalizeQuestion(&l.Questions[i], l)
	}
}

func normalizeQuestion(q *Question, l *Lesson) {
	if q.Prompt == "" {
		q.Prompt = fmt.Sprintf("Which statement about %s is correct?", firstNonEmpty(l.Topic, l.Subject, "this lesson"))
	}

	// Drop empty and duplicate choices, then pad from the filler pool.
	seen := make(map[string]bool, ChoiceCount)
	kept := q.Choices[:0]
	for _, c := range q.Choices {
		if strings.TrimSpace(c) == "" || seen[c] {
			continue
		}
		seen[c] = true
		kept = append(kept, c)
	}
	q.Choices = kept
	for _, f := range fillerChoices {
		if len(q.Choices) >= ChoiceCount {
			break
		}
		if !seen[f] {
			seen[f] = true
			q.Choices = append(q.Choices, f)
		}
	}
	if len(q.Choices) > ChoiceCount {
		q.Choices = q.Choices[:ChoiceCount]
	}

	if q.CorrectIndex < 0 {
		q.CorrectIndex = 0
	}
	if q.CorrectIndex >= len(q.Choices) {
		q.CorrectIndex = len(q.Choices) - 1
	}

	if len(q.Explanation) > ExplanationMaxLen {
		q.Explanation = clipToSentence(q.Explanation, ExplanationMaxLen)
	}
}

// fillerQuestion builds a generic comprehension question tied to the
// lesson topic. Used only when the model returned too few questions.
func fillerQuestion(l *Lesson, n int) Question {
	topic := firstNonEmpty(l.Topic, l.Subject, "this lesson")
	prompts := []string{
		fmt.Sprintf("What is the best way to continue practicing %s?", topic),
		fmt.Sprintf("Which approach helps most when studying %s?", topic),
		fmt.Sprintf("What should you do after reading about %s?", topic),
	}
	return Question{
		Prompt: prompts[n%len(prompts)],
		Choices: []string{
			"Review the key idea and work a small example",
			"Skip ahead without checking your understanding",
			"Memorize the text word for word",
			"Avoid practicing until the next lesson",
		},
		CorrectIndex: 0,
		Explanation:  "Reviewing the key idea and practicing on a small example is the most reliable way to retain a new concept.",
	}
}

// fitContent clips or pads content into the 80-105 word window, always
// ending on sentence-terminal punctuation.
func fitContent(content string) string {
	words := strings.Fields(content)

	if len(words) > ContentMaxWords {
		words = words[:ContentMaxWords]
		// Walk back to the last sentence end, but keep the floor.
		cut := len(words)
		for i := len(words) - 1; i >= ContentMinWords; i-- {
			if endsSentence(words[i-1]) {
				cut = i
				break
			}
		}
		words = words[:cut]
	}

	for i := 0; len(words) < ContentMinWords; i++ {
		words = append(words, strings.Fields(fillerSentences[i%len(fillerSentences)])...)
	}
	if len(words) > ContentMaxWords {
		words = words[:ContentMaxWords]
	}

	out := strings.Join(words, " ")
	if !endsSentence(out) {
		out = strings.TrimRight(out, " ,;:-") + "."
	}
	return out
}

// clipToSentence truncates s to at most max bytes, preferring to end at
// sentence punctuation.
func clipToSentence(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max-1]
	if idx := strings.LastIndexAny(s, ".!?"); idx > max/2 {
		return s[:idx+1]
	}
	return strings.TrimRight(s, " ,;:-") + "."
}

func endsSentence(s string) bool {
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
