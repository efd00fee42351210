package partner

import (
	"github.com/fxoffice/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeCustomer = "Customer"

// Event type constants
const (
	EventTypeCustomerCreated          = "CustomerCreated"
	EventTypeCustomerKYCStatusChanged = "CustomerKYCStatusChanged"
	EventTypeCustomerDeleted          = "CustomerDeleted"
)

// CustomerCreatedEvent is published when a customer is created
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	FullName string `json:"full_name"`
}

// NewCustomerCreatedEvent creates a new CustomerCreatedEvent
func NewCustomerCreatedEvent(c *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreated, AggregateTypeCustomer, c.ID, c.TenantID),
		FullName:        c.FullName(),
	}
}

// CustomerKYCStatusChangedEvent is published when a customer is verified or rejected
type CustomerKYCStatusChangedEvent struct {
	shared.BaseDomainEvent
	OldStatus KYCStatus `json:"old_status"`
	NewStatus KYCStatus `json:"new_status"`
	RiskLevel RiskLevel `json:"risk_level"`
	Reason    string    `json:"reason,omitempty"`
}

// NewCustomerKYCStatusChangedEvent creates a new CustomerKYCStatusChangedEvent
func NewCustomerKYCStatusChangedEvent(c *Customer, old KYCStatus) *CustomerKYCStatusChangedEvent {
	return &CustomerKYCStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerKYCStatusChanged, AggregateTypeCustomer, c.ID, c.TenantID),
		OldStatus:       old,
		NewStatus:       c.KYCStatus,
		RiskLevel:       c.RiskLevel,
		Reason:          c.RejectionReason,
	}
}

// CustomerDeletedEvent is published when a customer is deleted
type CustomerDeletedEvent struct {
	shared.BaseDomainEvent
}

// NewCustomerDeletedEvent creates a new CustomerDeletedEvent
func NewCustomerDeletedEvent(c *Customer) *CustomerDeletedEvent {
	return &CustomerDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerDeleted, AggregateTypeCustomer, c.ID, c.TenantID),
	}
}
