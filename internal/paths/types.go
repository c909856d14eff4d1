package paths

import (
	"fmt"
	"time"
)

// LearningPath is a whole-course level map for one (user, subject).
type LearningPath struct {
	Subject       string   `json:"subject"`
	Course        string   `json:"course"`
	Topics        []Topic  `json:"topics"`
	CrossSubjects []string `json:"crossSubjects"`
	Persona       string   `json:"persona"`
	Progress      float64  `json:"progress"`
}

// Topic is one major unit of a learning path.
type Topic struct {
	Name      string     `json:"name"`
	Subtopics []Subtopic `json:"subtopics"`
	Completed bool       `json:"completed"`
}

// Subtopic is one teachable slice of a topic.
type Subtopic struct {
	Name            string   `json:"name"`
	MiniLessonCount int      `json:"miniLessonCount"`
	Applications    []string `json:"applications"`
}

// ErrStillGenerating signals that another request already holds the
// generation slot for this (user, subject). Callers should retry after
// the suggested delay.
type ErrStillGenerating struct {
	RetryAfter time.Duration
}

func (e *ErrStillGenerating) Error() string {
	return fmt.Sprintf("learning path generation in progress, retry after %s", e.RetryAfter)
}
