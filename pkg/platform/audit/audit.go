// Package audit provides structured audit logging for security-relevant
// authentication events. Events go through the application logger with a
// stable shape so they can be filtered and shipped separately from debug
// output.
package audit

import (
	"context"
	"log/slog"

	"authhub/pkg/attrs"
)

// Event names emitted by the authentication flows.
const (
	EventUserRegistered        = "user_registered"
	EventLoginSucceeded        = "login_succeeded"
	EventLoginFailed           = "login_failed"
	EventOAuthLogin            = "oauth_login"
	EventOAuthFailed           = "oauth_failed"
	EventSessionCreated        = "session_created"
	EventSessionDestroyed      = "session_destroyed"
	EventSessionsBulkDestroyed = "sessions_bulk_destroyed"
)

// Log writes an audit event to the structured logger. attrList is a flat
// [key1, value1, ...] slice, same convention as slog.
func Log(ctx context.Context, logger *slog.Logger, event string, attrList ...any) {
	if logger == nil {
		return
	}
	args := append(attrList, "event", event, "log_type", "audit")
	if subject := Subject(attrList); subject != "" {
		args = append(args, "subject", subject)
	}
	logger.InfoContext(ctx, event, args...)
}

// Subject extracts the best available subject identifier from an attribute
// list, for callers that need one value to key alerting on.
func Subject(attrList []any) string {
	for _, key := range []string{"user_id", "email", "provider", "session_id"} {
		if val := attrs.ExtractString(attrList, key); val != "" {
			return val
		}
	}
	return ""
}
