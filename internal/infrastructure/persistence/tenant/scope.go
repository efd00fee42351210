// Package tenant scopes GORM statements to one organization.
//
// Repositories apply Scope to every statement on a tenant-owned table; the
// Guard callback rejects reads on those tables that reach the database
// without a tenant_id condition.
//
// Usage:
//
//	db.Scopes(tenant.Scope(tenantID)).Find(&orders)
//	db.WithContext(tenant.CrossTenant(ctx)).Where("status = ?", s).Find(&orders) // background jobs
package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Column is the tenant key on every tenant-owned table
const Column = "tenant_id"

// Tables lists the tenant-owned tables. Child tables (stacks, denominations,
// identifications) are reached through their parent and are not listed.
var Tables = []string{
	"repositories",
	"currencies",
	"customers",
	"cx_sessions",
	"orders",
	"notes",
}

var (
	// ErrUnscopedQuery is returned when a read on a tenant-owned table has no tenant condition
	ErrUnscopedQuery = errors.New("query on tenant-owned table without tenant_id condition")
	// ErrNilTenant is returned when Scope is given the zero UUID
	ErrNilTenant = errors.New("tenant id is nil")
)

// Scope restricts a statement to tenantID, qualified with the statement's table
// so it stays unambiguous across joins.
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrNilTenant)
			return db
		}
		return db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: Column},
			Value:  tenantID,
		})
	}
}

type crossTenantKey struct{}

// CrossTenant marks ctx for statements that deliberately span organizations
func CrossTenant(ctx context.Context) context.Context {
	return context.WithValue(ctx, crossTenantKey{}, true)
}

// IsCrossTenant reports whether ctx was marked by CrossTenant
func IsCrossTenant(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(crossTenantKey{}).(bool)
	return v
}
