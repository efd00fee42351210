package models

import (
	"time"

	"github.com/fxoffice/backend/internal/domain/float"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CxSessionModel is the persistence model for teller sessions
type CxSessionModel struct {
	TenantAggregateModel
	RepositoryID   uuid.UUID           `gorm:"type:uuid;not null;index:idx_cx_sessions_repository_status,priority:1"`
	OpenedBy       uuid.UUID           `gorm:"type:uuid;not null"`
	ClosedBy       *uuid.UUID          `gorm:"type:uuid"`
	Status         float.SessionStatus `gorm:"type:varchar(30);not null;index:idx_cx_sessions_repository_status,priority:2"`
	OpenStartedAt  *time.Time
	OpenedAt       *time.Time
	CloseStartedAt *time.Time
	ClosedAt       *time.Time
	Stacks         []FloatStackModel `gorm:"foreignKey:SessionID"`
}

// TableName returns the table name for GORM
func (CxSessionModel) TableName() string {
	return "cx_sessions"
}

// FloatStackModel is one currency's float within a session
type FloatStackModel struct {
	BaseModel
	SessionID       uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_float_stacks_session_currency,priority:1"`
	CurrencyID      uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_float_stacks_session_currency,priority:2"`
	CurrencyCode    string            `gorm:"type:varchar(10);not null"`
	OpenConfirmed   bool              `gorm:"not null;default:false"`
	CloseConfirmed  bool              `gorm:"not null;default:false"`
	MiddayCountedAt *time.Time
	Bought          decimal.Decimal   `gorm:"type:decimal(30,8);not null;default:0"`
	Sold            decimal.Decimal   `gorm:"type:decimal(30,8);not null;default:0"`
	Entries         []FloatEntryModel `gorm:"foreignKey:StackID"`
}

// TableName returns the table name for GORM
func (FloatStackModel) TableName() string {
	return "float_stacks"
}

// FloatEntryModel is the count of one denomination in a stack
type FloatEntryModel struct {
	BaseModel
	StackID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	DenominationID uuid.UUID       `gorm:"type:uuid;not null"`
	Value          decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Label          string          `gorm:"type:varchar(50)"`
	OpenCount      int             `gorm:"not null;default:0"`
	MiddayCount    *int
	CloseCount     int `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (FloatEntryModel) TableName() string {
	return "float_entries"
}

// ToDomain converts the model tree to a domain CxSession
func (m *CxSessionModel) ToDomain() *float.CxSession {
	stacks := make([]float.FloatStack, 0, len(m.Stacks))
	for _, sm := range m.Stacks {
		entries := make([]float.FloatEntry, 0, len(sm.Entries))
		for _, em := range sm.Entries {
			entries = append(entries, float.FloatEntry{
				BaseEntity:     em.BaseModel.ToDomain(),
				StackID:        em.StackID,
				DenominationID: em.DenominationID,
				Value:          em.Value,
				Label:          em.Label,
				OpenCount:      em.OpenCount,
				MiddayCount:    em.MiddayCount,
				CloseCount:     em.CloseCount,
			})
		}
		stacks = append(stacks, float.FloatStack{
			BaseEntity:      sm.BaseModel.ToDomain(),
			SessionID:       sm.SessionID,
			CurrencyID:      sm.CurrencyID,
			CurrencyCode:    sm.CurrencyCode,
			Entries:         entries,
			OpenConfirmed:   sm.OpenConfirmed,
			CloseConfirmed:  sm.CloseConfirmed,
			MiddayCountedAt: sm.MiddayCountedAt,
			Bought:          sm.Bought,
			Sold:            sm.Sold,
		})
	}

	return &float.CxSession{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		RepositoryID:        m.RepositoryID,
		OpenedBy:            m.OpenedBy,
		ClosedBy:            m.ClosedBy,
		Status:              m.Status,
		OpenStartedAt:       m.OpenStartedAt,
		OpenedAt:            m.OpenedAt,
		CloseStartedAt:      m.CloseStartedAt,
		ClosedAt:            m.ClosedAt,
		Stacks:              stacks,
	}
}

// CxSessionModelFromDomain creates a model tree from a domain CxSession
func CxSessionModelFromDomain(s *float.CxSession) *CxSessionModel {
	m := &CxSessionModel{
		RepositoryID:   s.RepositoryID,
		OpenedBy:       s.OpenedBy,
		ClosedBy:       s.ClosedBy,
		Status:         s.Status,
		OpenStartedAt:  s.OpenStartedAt,
		OpenedAt:       s.OpenedAt,
		CloseStartedAt: s.CloseStartedAt,
		ClosedAt:       s.ClosedAt,
	}
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)

	for _, st := range s.Stacks {
		sm := FloatStackModel{
			SessionID:       s.ID,
			CurrencyID:      st.CurrencyID,
			CurrencyCode:    st.CurrencyCode,
			OpenConfirmed:   st.OpenConfirmed,
			CloseConfirmed:  st.CloseConfirmed,
			MiddayCountedAt: st.MiddayCountedAt,
			Bought:          st.Bought,
			Sold:            st.Sold,
		}
		sm.FromDomainBaseEntity(st.BaseEntity)
		for _, e := range st.Entries {
			em := FloatEntryModel{
				StackID:        st.ID,
				DenominationID: e.DenominationID,
				Value:          e.Value,
				Label:          e.Label,
				OpenCount:      e.OpenCount,
				MiddayCount:    e.MiddayCount,
				CloseCount:     e.CloseCount,
			}
			em.FromDomainBaseEntity(e.BaseEntity)
			sm.Entries = append(sm.Entries, em)
		}
		m.Stacks = append(m.Stacks, sm)
	}
	return m
}
