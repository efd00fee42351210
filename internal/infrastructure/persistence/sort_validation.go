package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when whitelisted, otherwise defaultField
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

func sortFields(extra ...string) map[string]bool {
	m := map[string]bool{"id": true, "created_at": true, "updated_at": true}
	for _, f := range extra {
		m[f] = true
	}
	return m
}

var (
	OrganizationSortFields = sortFields("name", "slug", "status")
	RepositorySortFields   = sortFields("key", "name", "type", "status")
	CurrencySortFields     = sortFields("code", "name", "type", "rate", "rate_updated_at", "status")
	CustomerSortFields     = sortFields("first_name", "last_name", "email", "kyc_status", "risk_level", "verified_at")
	SessionSortFields      = sortFields("status", "opened_at", "closed_at")
	OrderSortFields        = sortFields("order_number", "status", "from_currency", "to_currency", "input_amount", "completed_at", "quote_expires_at")
)

// orderClause builds a safe ORDER BY clause from whitelisted input
func orderClause(orderBy, orderDir string, allowed map[string]bool, defaultField string) string {
	return ValidateSortField(orderBy, allowed, defaultField) + " " + ValidateSortOrder(orderDir)
}
