package float

import (
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeCxSession = "CxSession"

// Event type constants
const (
	EventTypeSessionStatusChanged = "SessionStatusChanged"
	EventTypeSessionClosed        = "SessionClosed"
)

// SessionStatusChangedEvent is published on every float status transition
type SessionStatusChangedEvent struct {
	shared.BaseDomainEvent
	RepositoryID uuid.UUID     `json:"repository_id"`
	OldStatus    SessionStatus `json:"old_status,omitempty"`
	NewStatus    SessionStatus `json:"new_status"`
}

// NewSessionStatusChangedEvent creates a new SessionStatusChangedEvent
func NewSessionStatusChangedEvent(s *CxSession, old SessionStatus) *SessionStatusChangedEvent {
	return &SessionStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionStatusChanged, AggregateTypeCxSession, s.ID, s.TenantID),
		RepositoryID:    s.RepositoryID,
		OldStatus:       old,
		NewStatus:       s.Status,
	}
}

// StackVariance is the closing variance of one currency
type StackVariance struct {
	CurrencyCode string          `json:"currency_code"`
	Expected     decimal.Decimal `json:"expected"`
	Counted      decimal.Decimal `json:"counted"`
	Variance     decimal.Decimal `json:"variance"`
}

// SessionClosedEvent is published when the float is closed, with per-currency variances
type SessionClosedEvent struct {
	shared.BaseDomainEvent
	RepositoryID uuid.UUID       `json:"repository_id"`
	Variances    []StackVariance `json:"variances"`
}

// NewSessionClosedEvent creates a new SessionClosedEvent
func NewSessionClosedEvent(s *CxSession) *SessionClosedEvent {
	variances := make([]StackVariance, 0, len(s.Stacks))
	for i := range s.Stacks {
		st := &s.Stacks[i]
		variances = append(variances, StackVariance{
			CurrencyCode: st.CurrencyCode,
			Expected:     st.ExpectedClose(),
			Counted:      st.CloseTotal(),
			Variance:     st.Variance(),
		})
	}
	return &SessionClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionClosed, AggregateTypeCxSession, s.ID, s.TenantID),
		RepositoryID:    s.RepositoryID,
		Variances:       variances,
	}
}
