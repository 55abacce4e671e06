package auth

import (
	"context"
	"net/http"

	"heimdall/models"
)

// ContextKey is the type used for context keys
type ContextKey string

const (
	// ContextKeyAccountID is the key for the account ID in the context
	ContextKeyAccountID ContextKey = "accountID"
	// ContextKeyUsername is the key for the account username in the context
	ContextKeyUsername ContextKey = "username"
	// ContextKeySession is the key for the session in the context
	ContextKeySession ContextKey = "session"
	// ContextKeyRequestID is the key for the request id set by the logging middleware
	ContextKeyRequestID ContextKey = "requestID"
)

// WithSession returns ctx carrying the authenticated session.
func WithSession(ctx context.Context, s models.Session) context.Context {
	ctx = context.WithValue(ctx, ContextKeyAccountID, s.AccountID)
	ctx = context.WithValue(ctx, ContextKeyUsername, s.Username)
	return context.WithValue(ctx, ContextKeySession, s)
}

// GetAccountID retrieves the authenticated account ID from the request context.
func GetAccountID(r *http.Request) string {
	if id, ok := r.Context().Value(ContextKeyAccountID).(string); ok {
		return id
	}
	return ""
}

// GetUsername retrieves the authenticated username from the request context.
func GetUsername(r *http.Request) string {
	if name, ok := r.Context().Value(ContextKeyUsername).(string); ok {
		return name
	}
	return ""
}

// GetSession retrieves the authenticated session from the request context.
func GetSession(r *http.Request) (models.Session, bool) {
	s, ok := r.Context().Value(ContextKeySession).(models.Session)
	return s, ok
}

// GetRequestID returns the id assigned to the request, if any.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}
