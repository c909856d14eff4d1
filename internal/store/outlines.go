package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutlineRepo caches course outlines shared across users.
type OutlineRepo struct {
	db *gorm.DB
}

// NewOutlineRepo wraps a connected database handle.
func NewOutlineRepo(db *gorm.DB) *OutlineRepo {
	return &OutlineRepo{db: db}
}

// Get returns the cached outline for (subject, course), or nil when none
// has been stored yet.
func (r *OutlineRepo) Get(ctx context.Context, subject, course string) (*CourseOutline, error) {
	var rec CourseOutline
	err := r.db.WithContext(ctx).
		Where("subject = ? AND course = ?", subject, course).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put stores or replaces the outline for (subject, course).
func (r *OutlineRepo) Put(ctx context.Context, subject, course string, payload []byte) error {
	now := time.Now()
	rec := CourseOutline{
		Subject:   subject,
		Course:    course,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "subject"}, {Name: "course"}},
		DoUpdates: clause.Assignments(map[string]any{
			"payload":    payload,
			"updated_at": now,
		}),
	}).Create(&rec).Error
}
