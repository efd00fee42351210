package float

import (
	"time"

	"github.com/fxoffice/backend/internal/domain/float"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Actor is the authenticated user performing a session operation
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// =============================================================================
// Session DTOs
// =============================================================================

// CreateSessionRequest opens a new dormant session on a repository
type CreateSessionRequest struct {
	RepositoryID uuid.UUID `json:"repository_id" binding:"required"`
}

// StartOpenRequest lists the currencies the float will hold
type StartOpenRequest struct {
	CurrencyIDs []uuid.UUID `json:"currency_ids" binding:"required,min=1,dive,required"`
}

// CountRequest carries denomination counts for one stack
type CountRequest struct {
	Counts map[uuid.UUID]int `json:"counts" binding:"required,min=1,dive,min=0"`
}

// SessionListFilter represents filter options for the session list
type SessionListFilter struct {
	RepositoryID string `form:"repository_id" binding:"omitempty,uuid"`
	Status       string `form:"status" binding:"omitempty,oneof=DORMANT FLOAT_OPEN_START FLOAT_OPEN_COMPLETE FLOAT_CLOSE_START FLOAT_CLOSE_COMPLETE"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderDir     string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// EntryResponse is one denomination line of a stack
type EntryResponse struct {
	DenominationID uuid.UUID       `json:"denomination_id"`
	Value          decimal.Decimal `json:"value"`
	Label          string          `json:"label"`
	OpenCount      int             `json:"open_count"`
	MiddayCount    *int            `json:"midday_count,omitempty"`
	CloseCount     int             `json:"close_count"`
}

// StackResponse is a float stack in API responses
type StackResponse struct {
	ID              uuid.UUID       `json:"id"`
	CurrencyID      uuid.UUID       `json:"currency_id"`
	CurrencyCode    string          `json:"currency_code"`
	OpenConfirmed   bool            `json:"open_confirmed"`
	CloseConfirmed  bool            `json:"close_confirmed"`
	MiddayCountedAt *time.Time      `json:"midday_counted_at,omitempty"`
	Entries         []EntryResponse `json:"entries"`
}

// SessionResponse represents a Cx session in API responses
type SessionResponse struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	RepositoryID   uuid.UUID       `json:"repository_id"`
	OpenedBy       uuid.UUID       `json:"opened_by"`
	ClosedBy       *uuid.UUID      `json:"closed_by,omitempty"`
	Status         string          `json:"status"`
	OpenStartedAt  *time.Time      `json:"open_started_at,omitempty"`
	OpenedAt       *time.Time      `json:"opened_at,omitempty"`
	CloseStartedAt *time.Time      `json:"close_started_at,omitempty"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
	Stacks         []StackResponse `json:"stacks"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// StackSummaryResponse reports the totals of one stack
type StackSummaryResponse struct {
	StackID         uuid.UUID       `json:"stack_id"`
	CurrencyID      uuid.UUID       `json:"currency_id"`
	CurrencyCode    string          `json:"currency_code"`
	OpenTotal       decimal.Decimal `json:"open_total"`
	MiddayTotal     decimal.Decimal `json:"midday_total"`
	MiddayCountedAt *time.Time      `json:"midday_counted_at,omitempty"`
	CloseTotal      decimal.Decimal `json:"close_total"`
	Bought          decimal.Decimal `json:"bought"`
	Sold            decimal.Decimal `json:"sold"`
	ExpectedClose   decimal.Decimal `json:"expected_close"`
	Variance        decimal.Decimal `json:"variance"`
	OpenConfirmed   bool            `json:"open_confirmed"`
	CloseConfirmed  bool            `json:"close_confirmed"`
}

// SessionSummaryResponse is the per-currency reconciliation of a session
type SessionSummaryResponse struct {
	SessionID uuid.UUID              `json:"session_id"`
	Status    string                 `json:"status"`
	Stacks    []StackSummaryResponse `json:"stacks"`
}

// ToSessionResponse converts a domain CxSession to SessionResponse
func ToSessionResponse(s *float.CxSession) SessionResponse {
	stacks := make([]StackResponse, len(s.Stacks))
	for i := range s.Stacks {
		st := &s.Stacks[i]
		entries := make([]EntryResponse, len(st.Entries))
		for j, e := range st.Entries {
			entries[j] = EntryResponse{
				DenominationID: e.DenominationID,
				Value:          e.Value,
				Label:          e.Label,
				OpenCount:      e.OpenCount,
				MiddayCount:    e.MiddayCount,
				CloseCount:     e.CloseCount,
			}
		}
		stacks[i] = StackResponse{
			ID:              st.ID,
			CurrencyID:      st.CurrencyID,
			CurrencyCode:    st.CurrencyCode,
			OpenConfirmed:   st.OpenConfirmed,
			CloseConfirmed:  st.CloseConfirmed,
			MiddayCountedAt: st.MiddayCountedAt,
			Entries:         entries,
		}
	}
	return SessionResponse{
		ID:             s.ID,
		TenantID:       s.TenantID,
		RepositoryID:   s.RepositoryID,
		OpenedBy:       s.OpenedBy,
		ClosedBy:       s.ClosedBy,
		Status:         string(s.Status),
		OpenStartedAt:  s.OpenStartedAt,
		OpenedAt:       s.OpenedAt,
		CloseStartedAt: s.CloseStartedAt,
		ClosedAt:       s.ClosedAt,
		Stacks:         stacks,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		Version:        s.Version,
	}
}

// ToSessionSummaryResponse converts a session's stack summaries
func ToSessionSummaryResponse(s *float.CxSession) SessionSummaryResponse {
	summary := s.Summary()
	stacks := make([]StackSummaryResponse, len(summary))
	for i, st := range summary {
		stacks[i] = StackSummaryResponse(st)
	}
	return SessionSummaryResponse{
		SessionID: s.ID,
		Status:    string(s.Status),
		Stacks:    stacks,
	}
}

// ToSessionResponses converts a slice of sessions
func ToSessionResponses(sessions []float.CxSession) []SessionResponse {
	out := make([]SessionResponse, len(sessions))
	for i := range sessions {
		out[i] = ToSessionResponse(&sessions[i])
	}
	return out
}
