package llm

import "context"

type contextKey string

const (
	purposeKey contextKey = "llm_purpose"
	userKey    contextKey = "llm_user"
	ipKey      contextKey = "llm_ip"
)

// WithPurpose attaches a purpose label to the context for ledger tagging
// ("lesson", "verify", "compress", "batch", "path").
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithUser attaches the requesting user's ID for ledger attribution.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserFrom extracts the user ID from the context. Empty if unset.
func UserFrom(ctx context.Context) string {
	if v, ok := ctx.Value(userKey).(string); ok {
		return v
	}
	return ""
}

// WithClientIP attaches the caller's IP for ledger attribution.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey, ip)
}

// ClientIPFrom extracts the caller IP from the context. Empty if unset.
func ClientIPFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ipKey).(string); ok {
		return v
	}
	return ""
}
