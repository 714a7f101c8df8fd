package core

import "context"

// TemplateReplacer is the host's template substitution facility.
type TemplateReplacer interface {
	Replace(target string, scoped Variables) string
}

// QueryBackend is the host's generic backend execution interface. Queries
// sent here are executed by the external backend component.
type QueryBackend interface {
	QueryData(ctx context.Context, req *QueryDataRequest) (*QueryDataResponse, error)
	CheckHealth(ctx context.Context, datasourceUID string) (*HealthResult, error)
}

// AuditRepository defines storage operations for the forwarded query audit trail
type AuditRepository interface {
	Create(log *AuditLog) error
	GetRecent(limit int) ([]AuditLog, error)
}
