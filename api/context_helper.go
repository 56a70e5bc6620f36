package api

import (
	"context"
	"time"
)

// QueryTimeout is the default timeout for database queries
const QueryTimeout = 10 * time.Second

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

type contextKey string

const organizationKey contextKey = "visor-organization"

// WithOrganization stores the authenticated organization name on the
// request context. Every data access downstream is scoped to it.
func WithOrganization(ctx context.Context, organization string) context.Context {
	return context.WithValue(ctx, organizationKey, organization)
}

// OrganizationFromContext returns the authenticated organization name.
func OrganizationFromContext(ctx context.Context) (string, bool) {
	org, ok := ctx.Value(organizationKey).(string)
	return org, ok && org != ""
}
