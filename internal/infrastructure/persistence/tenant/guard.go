package tenant

import (
	"regexp"

	"github.com/fxoffice/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const guardCallbackName = "tenant:guard"

var (
	orWord = regexp.MustCompile(`(?i)\bOR\b`)
	andSep = regexp.MustCompile(`(?i)\s+AND\s+`)
	// tenant_id = ?, "orders"."tenant_id" IN ?, tenant_id = @tenant
	tenantPredicate = regexp.MustCompile(`(?i)^\(*\s*(?:"?\w+"?\.)?"?` + Column + `"?\s*(?:=|IN)\s*\(?\s*(?:\?|@\w+)`)
)

// Guard rejects reads on tenant-owned tables that carry no tenant condition
type Guard struct {
	tables map[string]struct{}
}

// NewGuard creates a guard for the given tables
func NewGuard(tables ...string) *Guard {
	g := &Guard{tables: make(map[string]struct{}, len(tables))}
	for _, t := range tables {
		g.tables[t] = struct{}{}
	}
	return g
}

// Register installs the guard before gorm's query callback
func (g *Guard) Register(db *gorm.DB) error {
	return db.Callback().Query().Before("gorm:query").Register(guardCallbackName, g.check)
}

// RegisterGuard installs a guard over Tables
func RegisterGuard(db *gorm.DB) error {
	return NewGuard(Tables...).Register(db)
}

func (g *Guard) check(db *gorm.DB) {
	if db.Error != nil || db.Statement == nil {
		return
	}
	if _, guarded := g.tables[db.Statement.Table]; !guarded {
		return
	}
	if IsCrossTenant(db.Statement.Context) {
		return
	}
	if g.hasTenantCondition(db.Statement) {
		return
	}

	if db.Statement.Context != nil {
		logger.FromContext(db.Statement.Context).Error("unscoped query on tenant-owned table",
			zap.String("table", db.Statement.Table))
	}
	_ = db.AddError(ErrUnscopedQuery)
}

func (g *Guard) hasTenantCondition(stmt *gorm.Statement) bool {
	c, ok := stmt.Clauses["WHERE"]
	if !ok {
		return false
	}
	where, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	found := false
	for _, expr := range where.Exprs {
		// a top-level OR joins every condition before it
		if _, ok := expr.(clause.OrConditions); ok {
			return false
		}
		if mentionsTenant(expr) {
			found = true
		}
	}
	return found
}

func mentionsTenant(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		return isTenantColumn(e.Column)
	case clause.IN:
		return isTenantColumn(e.Column)
	case clause.Expr:
		return sqlPinsTenant(e.SQL)
	case clause.NamedExpr:
		return sqlPinsTenant(e.SQL)
	case clause.AndConditions:
		for _, sub := range e.Exprs {
			if mentionsTenant(sub) {
				return true
			}
		}
	}
	// OR branches can widen the result past one tenant and do not count
	return false
}

// sqlPinsTenant reports whether raw SQL is a conjunction with a
// tenant_id equality or IN against a bound value
func sqlPinsTenant(sql string) bool {
	if orWord.MatchString(sql) {
		return false
	}
	for _, conjunct := range andSep.Split(sql, -1) {
		if tenantPredicate.MatchString(conjunct) {
			return true
		}
	}
	return false
}

func isTenantColumn(col any) bool {
	switch c := col.(type) {
	case clause.Column:
		return c.Name == Column
	case string:
		return c == Column
	}
	return false
}
