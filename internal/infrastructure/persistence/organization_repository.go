package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrganizationRepository implements identity.OrganizationRepository using GORM
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewGormOrganizationRepository creates a new GormOrganizationRepository
func NewGormOrganizationRepository(db *gorm.DB) *GormOrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// FindByID finds an organization by its ID
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Organization, error) {
	var model models.OrganizationModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds an organization by its identity provider ID
func (r *GormOrganizationRepository) FindByExternalID(ctx context.Context, externalID string) (*identity.Organization, error) {
	if externalID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.OrganizationModel
	if err := conn(ctx, r.db).Where("external_id = ?", externalID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySlug finds an organization by its slug
func (r *GormOrganizationRepository) FindBySlug(ctx context.Context, slug string) (*identity.Organization, error) {
	var model models.OrganizationModel
	if err := conn(ctx, r.db).
		Where("slug = ?", strings.ToLower(strings.TrimSpace(slug))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds organizations by their IDs
func (r *GormOrganizationRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]identity.Organization, error) {
	if len(ids) == 0 {
		return []identity.Organization{}, nil
	}
	var rows []models.OrganizationModel
	if err := conn(ctx, r.db).Where("id IN ?", ids).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return organizationsToDomain(rows), nil
}

// FindActive pages through active organizations
func (r *GormOrganizationRepository) FindActive(ctx context.Context, filter shared.Filter) ([]identity.Organization, error) {
	query := conn(ctx, r.db).
		Model(&models.OrganizationModel{}).
		Where("status = ?", identity.OrganizationStatusActive).
		Order(orderClause(filter.OrderBy, filter.OrderDir, OrganizationSortFields, "created_at"))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.OrganizationModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return organizationsToDomain(rows), nil
}

// Save creates or updates an organization
func (r *GormOrganizationRepository) Save(ctx context.Context, org *identity.Organization) error {
	model := models.OrganizationModelFromDomain(org)
	if err := conn(ctx, r.db).Save(model).Error; err != nil {
		return translateError(err)
	}
	org.MarkLoaded()
	return nil
}

// ExistsBySlug checks whether the slug is taken
func (r *GormOrganizationRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).
		Model(&models.OrganizationModel{}).
		Where("slug = ?", strings.ToLower(strings.TrimSpace(slug))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func organizationsToDomain(rows []models.OrganizationModel) []identity.Organization {
	out := make([]identity.Organization, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ identity.OrganizationRepository = (*GormOrganizationRepository)(nil)
