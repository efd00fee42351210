package models

import (
	"time"

	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepositoryModel is the persistence model for cash/crypto repositories
type RepositoryModel struct {
	TenantAggregateModel
	Key             string                          `gorm:"type:varchar(32);not null;index:idx_repositories_key"`
	Name            string                          `gorm:"type:varchar(100);not null"`
	Description     string                          `gorm:"type:text"`
	Type            vault.RepositoryType            `gorm:"type:varchar(20);not null"`
	Status          vault.RepositoryStatus          `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	AuthorizedUsers []RepositoryAuthorizedUserModel `gorm:"foreignKey:RepositoryID"`
}

// TableName returns the table name for GORM
func (RepositoryModel) TableName() string {
	return "repositories"
}

// RepositoryAuthorizedUserModel is one row of a repository's access list
type RepositoryAuthorizedUserModel struct {
	RepositoryID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	TenantID     uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RepositoryAuthorizedUserModel) TableName() string {
	return "repository_authorized_users"
}

// ToDomain converts the model to a domain Repository
func (m *RepositoryModel) ToDomain() *vault.Repository {
	users := make([]uuid.UUID, 0, len(m.AuthorizedUsers))
	for _, au := range m.AuthorizedUsers {
		users = append(users, au.UserID)
	}
	return &vault.Repository{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Key:                 m.Key,
		Name:                m.Name,
		Description:         m.Description,
		Type:                m.Type,
		Status:              m.Status,
		AuthorizedUsers:     users,
	}
}

// RepositoryModelFromDomain creates a model from a domain Repository
func RepositoryModelFromDomain(r *vault.Repository) *RepositoryModel {
	m := &RepositoryModel{
		Key:         r.Key,
		Name:        r.Name,
		Description: r.Description,
		Type:        r.Type,
		Status:      r.Status,
	}
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	now := time.Now()
	for _, userID := range r.AuthorizedUsers {
		m.AuthorizedUsers = append(m.AuthorizedUsers, RepositoryAuthorizedUserModel{
			RepositoryID: r.ID,
			UserID:       userID,
			TenantID:     r.TenantID,
			CreatedAt:    now,
		})
	}
	return m
}

// CurrencyModel is the persistence model for organization currencies
type CurrencyModel struct {
	TenantAggregateModel
	Code          string               `gorm:"type:varchar(10);not null;index:idx_currencies_code"`
	Name          string               `gorm:"type:varchar(100);not null"`
	Symbol        string               `gorm:"type:varchar(10)"`
	Type          vault.CurrencyType   `gorm:"type:varchar(10);not null"`
	DecimalPlaces int                  `gorm:"not null;default:2"`
	Rate          decimal.Decimal      `gorm:"type:decimal(30,12);not null"`
	BuyMarginPct  decimal.Decimal      `gorm:"type:decimal(7,4);not null;default:0"`
	SellMarginPct decimal.Decimal      `gorm:"type:decimal(7,4);not null;default:0"`
	RateSource    vault.RateSource     `gorm:"type:varchar(10);not null;default:'MANUAL';index"`
	RateUpdatedAt *time.Time
	IsBase        bool                 `gorm:"not null;default:false"`
	Status        vault.CurrencyStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	Denominations []DenominationModel  `gorm:"foreignKey:CurrencyID"`
}

// TableName returns the table name for GORM
func (CurrencyModel) TableName() string {
	return "currencies"
}

// DenominationModel is the persistence model for currency denominations
type DenominationModel struct {
	BaseModel
	CurrencyID uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_denominations_currency_value,priority:1"`
	Value      decimal.Decimal        `gorm:"type:decimal(20,8);not null;uniqueIndex:idx_denominations_currency_value,priority:2"`
	Label      string                 `gorm:"type:varchar(50);not null"`
	Kind       vault.DenominationKind `gorm:"type:varchar(10);not null"`
	Active     bool                   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (DenominationModel) TableName() string {
	return "denominations"
}

// ToDomain converts the model to a domain Currency
func (m *CurrencyModel) ToDomain() *vault.Currency {
	denoms := make([]vault.Denomination, 0, len(m.Denominations))
	for _, d := range m.Denominations {
		denoms = append(denoms, vault.Denomination{
			BaseEntity: d.BaseModel.ToDomain(),
			CurrencyID: d.CurrencyID,
			Value:      d.Value,
			Label:      d.Label,
			Kind:       d.Kind,
			Active:     d.Active,
		})
	}
	return &vault.Currency{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Code:                m.Code,
		Name:                m.Name,
		Symbol:              m.Symbol,
		Type:                m.Type,
		DecimalPlaces:       m.DecimalPlaces,
		Rate:                m.Rate,
		BuyMarginPct:        m.BuyMarginPct,
		SellMarginPct:       m.SellMarginPct,
		RateSource:          m.RateSource,
		RateUpdatedAt:       m.RateUpdatedAt,
		IsBase:              m.IsBase,
		Status:              m.Status,
		Denominations:       denoms,
	}
}

// CurrencyModelFromDomain creates a model from a domain Currency
func CurrencyModelFromDomain(c *vault.Currency) *CurrencyModel {
	m := &CurrencyModel{
		Code:          c.Code,
		Name:          c.Name,
		Symbol:        c.Symbol,
		Type:          c.Type,
		DecimalPlaces: c.DecimalPlaces,
		Rate:          c.Rate,
		BuyMarginPct:  c.BuyMarginPct,
		SellMarginPct: c.SellMarginPct,
		RateSource:    c.RateSource,
		RateUpdatedAt: c.RateUpdatedAt,
		IsBase:        c.IsBase,
		Status:        c.Status,
	}
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	for _, d := range c.Denominations {
		dm := DenominationModel{
			CurrencyID: c.ID,
			Value:      d.Value,
			Label:      d.Label,
			Kind:       d.Kind,
			Active:     d.Active,
		}
		dm.FromDomainBaseEntity(d.BaseEntity)
		m.Denominations = append(m.Denominations, dm)
	}
	return m
}
