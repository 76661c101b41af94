package middleware

import "context"

type contextKey string

const (
	ctxUserID         contextKey = "user_id"
	ctxServiceSubject contextKey = "service_subject"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// ServiceSubjectFromContext returns the subject of a verified service token.
func ServiceSubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxServiceSubject).(string); ok {
		return v
	}
	return ""
}
