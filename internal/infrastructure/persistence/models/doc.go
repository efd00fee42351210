// Package models contains GORM persistence models. Domain types carry no ORM
// tags; each model maps to one table and converts to and from its domain type.
//
//   - base.go: shared columns (id, timestamps, version, tenant)
//   - identity.go: organizations, users, memberships
//   - vault.go: repositories and their authorized users, currencies, denominations
//   - partner.go: customers and identifications
//   - float.go: cx sessions, float stacks, float entries
//   - trade.go: orders and notes
package models
