package tenant

import (
	"context"
	"strings"
)

const (
	Header         = "X-Tenant-ID"
	OperatorHeader = "X-Operator-ID"

	maxIDLen = 64
)

type tenantKey struct{}

type operatorKey struct{}

func ContextWithTenantID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tenantKey{}, id)
}

func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tenantKey{}).(string)
	return id, ok && id != ""
}

func ContextWithOperator(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFromContext falls back to "api" for requests that did not name an
// operator.
func OperatorFromContext(ctx context.Context) string {
	if op, ok := ctx.Value(operatorKey{}).(string); ok && op != "" {
		return op
	}
	return "api"
}

// ValidID accepts short printable identifiers without whitespace.
func ValidID(id string) bool {
	if id == "" || len(id) > maxIDLen {
		return false
	}
	return !strings.ContainsFunc(id, func(r rune) bool {
		return r <= ' ' || r == 0x7f
	})
}
