package store

import (
	"time"

	"gorm.io/datatypes"
)

// Learning-path record statuses.
const (
	PathPending = "pending"
	PathReady   = "ready"
	PathFailed  = "failed"
)

// LearningPathRecord is the persisted state of one (user, subject)
// learning path. The unique index makes the row the authoritative lock
// for concurrent generation.
type LearningPathRecord struct {
	ID      uint   `gorm:"primaryKey"`
	UserID  string `gorm:"size:64;not null;uniqueIndex:idx_path_user_subject"`
	Subject string `gorm:"size:128;not null;uniqueIndex:idx_path_user_subject"`

	// Course is the course the stored path was generated for. A ready row
	// only satisfies requests for the same course.
	Course string `gorm:"size:128"`

	// Status is pending, ready, or failed. A pending row older than the
	// staleness window is reclaimable.
	Status string `gorm:"size:16;not null"`

	// Payload is the serialized learning path, set when Status is ready.
	Payload datatypes.JSON

	LastError string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CourseOutline caches a generated course outline per (subject, course)
// so path generation does not regenerate shared structure per user.
type CourseOutline struct {
	ID      uint   `gorm:"primaryKey"`
	Subject string `gorm:"size:128;not null;uniqueIndex:idx_outline_subject_course"`
	Course  string `gorm:"size:128;not null;uniqueIndex:idx_outline_subject_course"`

	Payload datatypes.JSON `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UsageRecord is one append-only row of the usage ledger. CostUSD is
// computed at append time from the pricing table so spend queries are a
// single SUM.
type UsageRecord struct {
	ID     uint   `gorm:"primaryKey"`
	UserID string `gorm:"size:64;index:idx_usage_user_time"`
	IP     string `gorm:"size:64"`

	Model  string `gorm:"size:128"`
	Source string `gorm:"size:32"`

	InputTokens  int
	OutputTokens int
	CostUSD      float64

	LatencyMs    int64
	Success      bool
	ErrorMessage string

	CreatedAt time.Time `gorm:"index:idx_usage_user_time"`
}
