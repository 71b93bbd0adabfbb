package bootstrap

import "context"

// AuditLog is one operator visible event such as a shutdown or an applied
// domain event.
type AuditLog struct {
	Action  string
	Message string
	Meta    map[string]any
}

type AuditLogger interface {
	Log(ctx context.Context, entry AuditLog)
}
