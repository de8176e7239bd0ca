package rest

import "context"

type ctxKeyRequestID struct{}
type ctxKeyUserID struct{}

func withRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, rid)
}

func RequestIDFrom(ctx context.Context) string {
	rid, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return rid
}

func withUserID(ctx context.Context, uid int64) context.Context {
	return context.WithValue(ctx, ctxKeyUserID{}, uid)
}

// UserIDFrom returns the authenticated user id, or nil for anonymous requests.
func UserIDFrom(ctx context.Context) *int64 {
	uid, ok := ctx.Value(ctxKeyUserID{}).(int64)
	if !ok {
		return nil
	}
	return &uid
}
