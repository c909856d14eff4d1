package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"lessonforge/internal/llm"
)

// UsageRepo is the persisted usage ledger. It satisfies llm.UsageSink on
// the write side and lessons.SpendLedger on the read side.
type UsageRepo struct {
	db *gorm.DB
}

// NewUsageRepo wraps a connected database handle.
func NewUsageRepo(db *gorm.DB) *UsageRepo {
	return &UsageRepo{db: db}
}

// AppendUsage records one completion call. Cost is resolved against the
// pricing table at append time; unknown models are billed at zero.
func (r *UsageRepo) AppendUsage(ctx context.Context, ev llm.UsageEvent) error {
	rec := UsageRecord{
		UserID:       ev.UserID,
		IP:           ev.IP,
		Model:        ev.Model,
		Source:       ev.Source,
		InputTokens:  ev.InputTokens,
		OutputTokens: ev.OutputTokens,
		LatencyMs:    ev.LatencyMs,
		Success:      ev.Success,
		ErrorMessage: ev.ErrorMessage,
		CreatedAt:    time.Now(),
	}
	if cost := llm.LookupCost(ev.Model); cost != nil {
		rec.CostUSD = cost.Cost(ev.InputTokens, ev.OutputTokens)
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

// SpendSince returns the user's total ledger cost since the given time.
func (r *UsageRepo) SpendSince(ctx context.Context, userID string, since time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&UsageRecord{}).
		Select("COALESCE(SUM(cost_usd), 0)").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Scan(&total).Error
	return total, err
}

// Summary aggregates ledger rows for reporting.
type Summary struct {
	Model        string
	Calls        int64
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
}

// SummarizeSince groups ledger rows by model for the usage report.
func (r *UsageRepo) SummarizeSince(ctx context.Context, since time.Time) ([]Summary, error) {
	var rows []Summary
	err := r.db.WithContext(ctx).
		Model(&UsageRecord{}).
		Select("model, COUNT(*) AS calls, SUM(input_tokens) AS input_tokens, SUM(output_tokens) AS output_tokens, SUM(cost_usd) AS cost_usd").
		Where("created_at >= ?", since).
		Group("model").
		Order("cost_usd DESC").
		Scan(&rows).Error
	return rows, err
}
