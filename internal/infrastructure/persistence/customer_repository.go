package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/fxoffice/backend/internal/domain/partner"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/models"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCustomerRepository implements partner.CustomerRepository using GORM.
// Identification numbers pass through the cipher on every read and write.
type GormCustomerRepository struct {
	db     *gorm.DB
	cipher models.FieldCipher
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB, cipher models.FieldCipher) *GormCustomerRepository {
	return &GormCustomerRepository{db: db, cipher: cipher}
}

func (r *GormCustomerRepository) withIdentifications(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).Preload("Identifications", func(db *gorm.DB) *gorm.DB {
		return db.Order("is_primary DESC, created_at ASC")
	})
}

// FindByIDForTenant finds a customer by ID within a tenant
func (r *GormCustomerRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Customer, error) {
	var model models.CustomerModel
	if err := r.withIdentifications(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(r.cipher)
}

// FindByEmail finds a customer by email within a tenant
func (r *GormCustomerRepository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*partner.Customer, error) {
	var model models.CustomerModel
	if err := r.withIdentifications(ctx).
		Where("tenant_id = ? AND LOWER(email) = ?", tenantID, strings.ToLower(strings.TrimSpace(email))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(r.cipher)
}

// ExistsByEmail checks whether another customer already uses the email
func (r *GormCustomerRepository) ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).
		Model(&models.CustomerModel{}).
		Where("tenant_id = ? AND LOWER(email) = ?", tenantID, strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAllForTenant lists customers matching the filter
func (r *GormCustomerRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]partner.Customer, error) {
	query := r.applyFilter(r.withIdentifications(ctx).Model(&models.CustomerModel{}).Scopes(tenant.Scope(tenantID)), filter).
		Order(orderClause(filter.OrderBy, filter.OrderDir, CustomerSortFields, "created_at"))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.CustomerModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	customers := make([]partner.Customer, 0, len(rows))
	for i := range rows {
		c, err := rows[i].ToDomain(r.cipher)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, nil
}

// CountForTenant counts customers matching the filter
func (r *GormCustomerRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(conn(ctx, r.db).Model(&models.CustomerModel{}).Scopes(tenant.Scope(tenantID)), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByKYCStatus counts customers in a KYC status
func (r *GormCustomerRepository) CountByKYCStatus(ctx context.Context, tenantID uuid.UUID, status partner.KYCStatus) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).
		Model(&models.CustomerModel{}).
		Where("tenant_id = ? AND kyc_status = ?", tenantID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save writes the customer and syncs its identifications
func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	model, err := models.CustomerModelFromDomain(customer, r.cipher)
	if err != nil {
		return err
	}

	err = conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(model.Identifications))
		for i, im := range model.Identifications {
			ids[i] = im.ID
		}
		stale := tx.Where("customer_id = ?", customer.ID)
		if len(ids) > 0 {
			stale = stale.Where("id NOT IN ?", ids)
		}
		if err := stale.Delete(&models.IdentificationModel{}).Error; err != nil {
			return err
		}

		for i := range model.Identifications {
			if err := tx.Save(&model.Identifications[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translateError(err)
	}
	customer.MarkLoaded()
	return nil
}

// DeleteForTenant deletes a customer and their identifications
func (r *GormCustomerRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.CustomerModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return tx.Where("customer_id = ?", id).Delete(&models.IdentificationModel{}).Error
	})
}

func (r *GormCustomerRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		like := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?",
			like, like, like, like,
		)
	}
	if v, ok := filter.Filters["kyc_status"]; ok && v != "" {
		query = query.Where("kyc_status = ?", v)
	}
	if v, ok := filter.Filters["risk_level"]; ok && v != "" {
		query = query.Where("risk_level = ?", v)
	}
	return query
}

var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)
