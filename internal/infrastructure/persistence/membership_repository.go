package persistence

import (
	"context"
	"errors"

	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMembershipRepository implements identity.MembershipRepository using GORM
type GormMembershipRepository struct {
	db *gorm.DB
}

// NewGormMembershipRepository creates a new GormMembershipRepository
func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	return &GormMembershipRepository{db: db}
}

// Find returns the membership of a user in an organization
func (r *GormMembershipRepository) Find(ctx context.Context, orgID, userID uuid.UUID) (*identity.Membership, error) {
	var model models.MembershipModel
	if err := conn(ctx, r.db).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds a membership by identity provider ID
func (r *GormMembershipRepository) FindByExternalID(ctx context.Context, externalID string) (*identity.Membership, error) {
	if externalID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.MembershipModel
	if err := conn(ctx, r.db).Where("external_id = ?", externalID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrganization lists the members of an organization
func (r *GormMembershipRepository) FindByOrganization(ctx context.Context, orgID uuid.UUID) ([]identity.Membership, error) {
	return r.findWhere(ctx, "organization_id = ?", orgID)
}

// FindByUser lists the organizations a user belongs to
func (r *GormMembershipRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]identity.Membership, error) {
	return r.findWhere(ctx, "user_id = ?", userID)
}

func (r *GormMembershipRepository) findWhere(ctx context.Context, cond string, arg uuid.UUID) ([]identity.Membership, error) {
	var rows []models.MembershipModel
	if err := conn(ctx, r.db).Where(cond, arg).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]identity.Membership, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a membership
func (r *GormMembershipRepository) Save(ctx context.Context, m *identity.Membership) error {
	return translateError(conn(ctx, r.db).Save(models.MembershipModelFromDomain(m)).Error)
}

// Delete removes a user from an organization
func (r *GormMembershipRepository) Delete(ctx context.Context, orgID, userID uuid.UUID) error {
	result := conn(ctx, r.db).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Delete(&models.MembershipModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ identity.MembershipRepository = (*GormMembershipRepository)(nil)
