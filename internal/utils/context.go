package utils

import (
	"context"
	"time"
)

type contextKey string

const ContextUsernameKey contextKey = "username"

// SessionData is what the admin middleware learns from a session token.
type SessionData struct {
	Username  string
	ExpiresAt time.Time
}

func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ContextUsernameKey, username)
}

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(ContextUsernameKey).(string)
	return username, ok && username != ""
}
