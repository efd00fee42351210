package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/models"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVaultRepository implements vault.RepositoryRepository using GORM.
// The access list lives in repository_authorized_users.
type GormVaultRepository struct {
	db *gorm.DB
}

// NewGormVaultRepository creates a new GormVaultRepository
func NewGormVaultRepository(db *gorm.DB) *GormVaultRepository {
	return &GormVaultRepository{db: db}
}

// FindByIDForTenant finds a repository by ID within a tenant
func (r *GormVaultRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*vault.Repository, error) {
	var model models.RepositoryModel
	if err := conn(ctx, r.db).
		Preload("AuthorizedUsers").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByKey finds a repository by its key within a tenant
func (r *GormVaultRepository) FindByKey(ctx context.Context, tenantID uuid.UUID, key string) (*vault.Repository, error) {
	var model models.RepositoryModel
	if err := conn(ctx, r.db).
		Preload("AuthorizedUsers").
		Where("tenant_id = ? AND key = ?", tenantID, vault.NormalizeRepositoryKey(key)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists repositories matching the filter
func (r *GormVaultRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]vault.Repository, error) {
	query := r.applyFilter(conn(ctx, r.db).Model(&models.RepositoryModel{}).Scopes(tenant.Scope(tenantID)), filter).
		Order(orderClause(filter.OrderBy, filter.OrderDir, RepositorySortFields, "key"))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.RepositoryModel
	if err := query.Preload("AuthorizedUsers").Find(&rows).Error; err != nil {
		return nil, err
	}
	return repositoriesToDomain(rows), nil
}

// CountForTenant counts repositories matching the filter
func (r *GormVaultRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(conn(ctx, r.db).Model(&models.RepositoryModel{}).Scopes(tenant.Scope(tenantID)), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindAuthorizedForUser returns the repositories the user is on the access list of
func (r *GormVaultRepository) FindAuthorizedForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]vault.Repository, error) {
	var rows []models.RepositoryModel
	if err := conn(ctx, r.db).
		Preload("AuthorizedUsers").
		Scopes(tenant.Scope(tenantID)).
		Where("id IN (?)", r.db.Model(&models.RepositoryAuthorizedUserModel{}).
			Select("repository_id").
			Where("tenant_id = ? AND user_id = ?", tenantID, userID)).
		Order("key ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return repositoriesToDomain(rows), nil
}

// ExistsByKey checks if the key is taken within the tenant
func (r *GormVaultRepository) ExistsByKey(ctx context.Context, tenantID uuid.UUID, key string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).
		Model(&models.RepositoryModel{}).
		Where("tenant_id = ? AND key = ?", tenantID, vault.NormalizeRepositoryKey(key)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save writes the repository and replaces its access list
func (r *GormVaultRepository) Save(ctx context.Context, repo *vault.Repository) error {
	model := models.RepositoryModelFromDomain(repo)
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("repository_id = ?", repo.ID).
			Delete(&models.RepositoryAuthorizedUserModel{}).Error; err != nil {
			return err
		}
		if len(model.AuthorizedUsers) > 0 {
			if err := tx.Create(&model.AuthorizedUsers).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translateError(err)
	}
	repo.MarkLoaded()
	return nil
}

// DeleteForTenant deletes a repository and its access list
func (r *GormVaultRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND repository_id = ?", tenantID, id).
			Delete(&models.RepositoryAuthorizedUserModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.RepositoryModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *GormVaultRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(key) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	if v, ok := filter.Filters["status"]; ok && v != "" {
		query = query.Where("status = ?", v)
	}
	if v, ok := filter.Filters["type"]; ok && v != "" {
		query = query.Where("type = ?", v)
	}
	return query
}

func repositoriesToDomain(rows []models.RepositoryModel) []vault.Repository {
	out := make([]vault.Repository, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// GormCurrencyRepository implements vault.CurrencyRepository using GORM
type GormCurrencyRepository struct {
	db *gorm.DB
}

// NewGormCurrencyRepository creates a new GormCurrencyRepository
func NewGormCurrencyRepository(db *gorm.DB) *GormCurrencyRepository {
	return &GormCurrencyRepository{db: db}
}

func (r *GormCurrencyRepository) withDenominations(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).Preload("Denominations", func(db *gorm.DB) *gorm.DB {
		return db.Order("value DESC")
	})
}

// FindByIDForTenant finds a currency by ID within a tenant
func (r *GormCurrencyRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*vault.Currency, error) {
	var model models.CurrencyModel
	if err := r.withDenominations(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a currency by its code within a tenant
func (r *GormCurrencyRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*vault.Currency, error) {
	var model models.CurrencyModel
	if err := r.withDenominations(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, strings.ToUpper(strings.TrimSpace(code))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBase returns the tenant's base currency
func (r *GormCurrencyRepository) FindBase(ctx context.Context, tenantID uuid.UUID) (*vault.Currency, error) {
	var model models.CurrencyModel
	if err := r.withDenominations(ctx).
		Where("tenant_id = ? AND is_base = ?", tenantID, true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds currencies by their IDs
func (r *GormCurrencyRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]vault.Currency, error) {
	if len(ids) == 0 {
		return []vault.Currency{}, nil
	}
	var rows []models.CurrencyModel
	if err := r.withDenominations(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return currenciesToDomain(rows), nil
}

// FindByRateSource lists the tenant's currencies priced from the given source
func (r *GormCurrencyRepository) FindByRateSource(ctx context.Context, tenantID uuid.UUID, source vault.RateSource) ([]vault.Currency, error) {
	var rows []models.CurrencyModel
	if err := r.withDenominations(ctx).
		Where("tenant_id = ? AND rate_source = ?", tenantID, source).
		Order("code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return currenciesToDomain(rows), nil
}

// FindAllForTenant lists currencies matching the filter
func (r *GormCurrencyRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]vault.Currency, error) {
	query := r.applyFilter(r.withDenominations(ctx).Model(&models.CurrencyModel{}).Scopes(tenant.Scope(tenantID)), filter).
		Order(orderClause(filter.OrderBy, filter.OrderDir, CurrencySortFields, "code"))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.CurrencyModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return currenciesToDomain(rows), nil
}

// CountForTenant counts currencies matching the filter
func (r *GormCurrencyRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(conn(ctx, r.db).Model(&models.CurrencyModel{}).Scopes(tenant.Scope(tenantID)), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByCode checks if the code is taken within the tenant
func (r *GormCurrencyRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).
		Model(&models.CurrencyModel{}).
		Where("tenant_id = ? AND code = ?", tenantID, strings.ToUpper(strings.TrimSpace(code))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save writes the currency and syncs its denominations
func (r *GormCurrencyRepository) Save(ctx context.Context, currency *vault.Currency) error {
	model := models.CurrencyModelFromDomain(currency)
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(model.Denominations))
		for i, d := range model.Denominations {
			ids[i] = d.ID
		}
		stale := tx.Where("currency_id = ?", currency.ID)
		if len(ids) > 0 {
			stale = stale.Where("id NOT IN ?", ids)
		}
		if err := stale.Delete(&models.DenominationModel{}).Error; err != nil {
			return err
		}

		for i := range model.Denominations {
			if err := tx.Save(&model.Denominations[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translateError(err)
	}
	currency.MarkLoaded()
	return nil
}

// DeleteForTenant deletes a currency and its denominations
func (r *GormCurrencyRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.CurrencyModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return tx.Where("currency_id = ?", id).Delete(&models.DenominationModel{}).Error
	})
}

// UpdateRates writes feed rates in one statement per currency
func (r *GormCurrencyRepository) UpdateRates(ctx context.Context, tenantID uuid.UUID, currencies []vault.Currency, at time.Time) error {
	if len(currencies) == 0 {
		return nil
	}
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		for i := range currencies {
			c := &currencies[i]
			if err := tx.Model(&models.CurrencyModel{}).
				Where("tenant_id = ? AND id = ?", tenantID, c.ID).
				Updates(map[string]any{
					"rate":            c.Rate,
					"rate_updated_at": at,
					"version":         c.Version,
					"updated_at":      c.UpdatedAt,
				}).Error; err != nil {
				return err
			}
			c.MarkLoaded()
		}
		return nil
	})
}

func (r *GormCurrencyRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	for _, col := range []string{"status", "type", "rate_source"} {
		if v, ok := filter.Filters[col]; ok && v != "" {
			query = query.Where(col+" = ?", v)
		}
	}
	return query
}

func currenciesToDomain(rows []models.CurrencyModel) []vault.Currency {
	out := make([]vault.Currency, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var (
	_ vault.RepositoryRepository = (*GormVaultRepository)(nil)
	_ vault.CurrencyRepository   = (*GormCurrencyRepository)(nil)
)
