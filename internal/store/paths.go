package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PathRepo persists learning-path records and arbitrates concurrent
// generation through a conditional upsert.
type PathRepo struct {
	db *gorm.DB
}

// NewPathRepo wraps a connected database handle.
func NewPathRepo(db *gorm.DB) *PathRepo {
	return &PathRepo{db: db}
}

// Claim attempts to take ownership of generation for (userID, subject).
// It inserts a pending row, or flips an existing row back to pending when
// that row is failed or a pending leftover older than staleness. The
// database decides the race: claimed is false when another generation
// currently holds the row.
func (r *PathRepo) Claim(ctx context.Context, userID, subject, course string, staleness time.Duration) (bool, error) {
	now := time.Now()
	rec := LearningPathRecord{
		UserID:    userID,
		Subject:   subject,
		Course:    course,
		Status:    PathPending,
		LastError: "",
		CreatedAt: now,
		UpdatedAt: now,
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "subject"}},
		DoUpdates: clause.Assignments(map[string]any{
			"course":     course,
			"status":     PathPending,
			"last_error": "",
			"updated_at": now,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{
				SQL:  "learning_path_records.status <> ? OR learning_path_records.updated_at < ?",
				Vars: []any{PathPending, now.Add(-staleness)},
			},
		}},
	}).Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}

	// Zero rows means the conflict target existed and the guard rejected
	// the update: a fresh pending row owned by someone else.
	return res.RowsAffected > 0, nil
}

// Get returns the record for (userID, subject), or nil when none exists.
func (r *PathRepo) Get(ctx context.Context, userID, subject string) (*LearningPathRecord, error) {
	var rec LearningPathRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND subject = ?", userID, subject).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkReady stores the generated payload and flips the row to ready.
func (r *PathRepo) MarkReady(ctx context.Context, userID, subject string, payload []byte) error {
	return r.db.WithContext(ctx).
		Model(&LearningPathRecord{}).
		Where("user_id = ? AND subject = ?", userID, subject).
		Updates(map[string]any{
			"status":     PathReady,
			"payload":    payload,
			"last_error": "",
			"updated_at": time.Now(),
		}).Error
}

// MarkFailed records the failure so the next caller can reclaim the row
// immediately instead of waiting out the staleness window.
func (r *PathRepo) MarkFailed(ctx context.Context, userID, subject, msg string) error {
	return r.db.WithContext(ctx).
		Model(&LearningPathRecord{}).
		Where("user_id = ? AND subject = ?", userID, subject).
		Updates(map[string]any{
			"status":     PathFailed,
			"last_error": msg,
			"updated_at": time.Now(),
		}).Error
}
