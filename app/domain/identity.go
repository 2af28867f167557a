package domain

import (
	"regexp"
	"strings"
)

// ControlPlaneSchema is the shared schema holding account, billing and
// scheduling metadata common to all tenants.
const ControlPlaneSchema = "public"

// schemaNameRegex validates tenant schema identifiers. Anything that fails
// this grammar must never reach the connection layer: schema names are
// interpolated into SET search_path statements.
var schemaNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// TenantIdentity is the resolved schema target for one unit of work.
// The zero value addresses the control-plane schema. Immutable once built.
type TenantIdentity struct {
	schemaName string
}

// ControlPlane returns the identity addressing the shared schema.
func ControlPlane() TenantIdentity {
	return TenantIdentity{}
}

// NewTenantIdentity validates and normalizes a raw schema hint. Blank input
// resolves to the control-plane identity; the absence of a tenant hint is a
// valid, common case. Any non-blank input failing the schema-name grammar
// returns ErrInvalidSchemaName.
func NewTenantIdentity(raw string) (TenantIdentity, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ControlPlane(), nil
	}
	if !schemaNameRegex.MatchString(trimmed) {
		return TenantIdentity{}, ErrInvalidSchemaName
	}
	return TenantIdentity{schemaName: strings.ToLower(trimmed)}, nil
}

// IsControlPlane reports whether the identity targets the shared schema.
func (t TenantIdentity) IsControlPlane() bool {
	return t.schemaName == ""
}

// SchemaName returns the tenant schema name, or the control-plane schema
// when no tenant is addressed.
func (t TenantIdentity) SchemaName() string {
	if t.schemaName == "" {
		return ControlPlaneSchema
	}
	return t.schemaName
}

func (t TenantIdentity) String() string {
	if t.IsControlPlane() {
		return "control-plane"
	}
	return t.schemaName
}

// ValidSchemaName reports whether a raw string satisfies the schema-name
// grammar without normalizing it.
func ValidSchemaName(raw string) bool {
	return schemaNameRegex.MatchString(strings.TrimSpace(raw))
}
