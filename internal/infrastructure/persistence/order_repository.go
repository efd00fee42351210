package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/trade"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/models"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByIDForTenant finds an order by ID within a tenant
func (r *GormOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrderNumber finds an order by its number within a tenant
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*trade.Order, error) {
	var model models.OrderModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND order_number = ?", tenantID, strings.ToUpper(strings.TrimSpace(orderNumber))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySession lists every order taken in a session, oldest first
func (r *GormOrderRepository) FindBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]trade.Order, error) {
	var rows []models.OrderModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return ordersToDomain(rows), nil
}

// FindExpiredQuotes returns quotes across all tenants whose expiry is before the given time
func (r *GormOrderRepository) FindExpiredQuotes(ctx context.Context, before time.Time, limit int) ([]trade.Order, error) {
	query := conn(tenant.CrossTenant(ctx), r.db).
		Where("status = ? AND quote_expires_at < ?", trade.OrderStatusQuote, before).
		Order("quote_expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.OrderModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return ordersToDomain(rows), nil
}

// FindAllForTenant lists orders matching the filter
func (r *GormOrderRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]trade.Order, error) {
	query := r.applyFilter(conn(ctx, r.db).Model(&models.OrderModel{}).Scopes(tenant.Scope(tenantID)), filter).
		Order(orderClause(filter.OrderBy, filter.OrderDir, OrderSortFields, "created_at"))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.OrderModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return ordersToDomain(rows), nil
}

// CountForTenant counts orders matching the filter
func (r *GormOrderRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(conn(ctx, r.db).Model(&models.OrderModel{}).Scopes(tenant.Scope(tenantID)), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates the order or updates it if the stored version still matches
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	loaded := order.LoadedVersion()
	if loaded > 0 && order.Version <= loaded {
		order.IncrementVersion()
	}
	model := models.OrderModelFromDomain(order)

	if loaded == 0 {
		if err := conn(ctx, r.db).Create(model).Error; err != nil {
			return translateError(err)
		}
		order.MarkLoaded()
		return nil
	}

	result := conn(ctx, r.db).
		Model(&models.OrderModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", order.ID, order.TenantID, loaded).
		Updates(map[string]any{
			"customer_id":   model.CustomerID,
			"status":        model.Status,
			"completed_at":  model.CompletedAt,
			"completed_by":  model.CompletedBy,
			"cancelled_at":  model.CancelledAt,
			"cancel_reason": model.CancelReason,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	order.MarkLoaded()
	return nil
}

// DeleteForTenant deletes an order
func (r *GormOrderRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := conn(ctx, r.db).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.OrderModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GenerateOrderNumber returns the next FX-YYYYMMDD-NNNN number for the tenant.
// The suffix widens past 9999, so numbers are compared by length first.
func (r *GormOrderRepository) GenerateOrderNumber(ctx context.Context, tenantID uuid.UUID, at time.Time) (string, error) {
	prefix := fmt.Sprintf("FX-%s-", at.UTC().Format("20060102"))

	var last models.OrderModel
	err := conn(ctx, r.db).
		Select("order_number").
		Where("tenant_id = ? AND order_number LIKE ?", tenantID, prefix+"%").
		Order("LENGTH(order_number) DESC, order_number DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return prefix + "0001", nil
	}
	if err != nil {
		return "", err
	}

	n, err := strconv.Atoi(strings.TrimPrefix(last.OrderNumber, prefix))
	if err != nil {
		return "", fmt.Errorf("unparseable order number %q: %w", last.OrderNumber, err)
	}
	return fmt.Sprintf("%s%04d", prefix, n+1), nil
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("order_number LIKE ?", "%"+strings.ToUpper(strings.TrimSpace(filter.Search))+"%")
	}
	for _, col := range []string{"session_id", "repository_id", "customer_id", "status", "side"} {
		if v, ok := filter.Filters[col]; ok && v != "" {
			query = query.Where(col+" = ?", v)
		}
	}
	if v, ok := filter.Filters["from"].(time.Time); ok && !v.IsZero() {
		query = query.Where("created_at >= ?", v)
	}
	if v, ok := filter.Filters["to"].(time.Time); ok && !v.IsZero() {
		query = query.Where("created_at < ?", v)
	}
	return query
}

func ordersToDomain(rows []models.OrderModel) []trade.Order {
	out := make([]trade.Order, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ trade.OrderRepository = (*GormOrderRepository)(nil)
