package persistence

import (
	"context"
	"errors"

	"github.com/fxoffice/backend/internal/domain/float"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/models"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSessionRepository implements float.SessionRepository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) withStacks(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).
		Preload("Stacks", func(db *gorm.DB) *gorm.DB {
			return db.Order("currency_code ASC")
		}).
		Preload("Stacks.Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("value DESC")
		})
}

func (r *GormSessionRepository) first(query *gorm.DB) (*float.CxSession, error) {
	var model models.CxSessionModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds a session by ID within a tenant
func (r *GormSessionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*float.CxSession, error) {
	return r.first(r.withStacks(ctx).Where("tenant_id = ? AND id = ?", tenantID, id))
}

// FindActiveByRepository returns the non-terminal session on a repository
func (r *GormSessionRepository) FindActiveByRepository(ctx context.Context, tenantID, repositoryID uuid.UUID) (*float.CxSession, error) {
	return r.first(r.withStacks(ctx).
		Where("tenant_id = ? AND repository_id = ? AND status IN ?", tenantID, repositoryID, float.NonTerminalStatuses()).
		Order("created_at DESC"))
}

// FindLastClosedByRepository returns the most recently closed session
func (r *GormSessionRepository) FindLastClosedByRepository(ctx context.Context, tenantID, repositoryID uuid.UUID) (*float.CxSession, error) {
	return r.first(r.withStacks(ctx).
		Where("tenant_id = ? AND repository_id = ? AND status = ?", tenantID, repositoryID, float.SessionStatusFloatCloseComplete).
		Order("closed_at DESC"))
}

// FindAllForTenant lists sessions matching the filter
func (r *GormSessionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]float.CxSession, error) {
	query := r.applyFilter(r.withStacks(ctx).Model(&models.CxSessionModel{}).Scopes(tenant.Scope(tenantID)), filter).
		Order(orderClause(filter.OrderBy, filter.OrderDir, SessionSortFields, "created_at"))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.CxSessionModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	sessions := make([]float.CxSession, len(rows))
	for i := range rows {
		sessions[i] = *rows[i].ToDomain()
	}
	return sessions, nil
}

// CountForTenant counts sessions matching the filter
func (r *GormSessionRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(conn(ctx, r.db).Model(&models.CxSessionModel{}).Scopes(tenant.Scope(tenantID)), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save persists the session with the version check
func (r *GormSessionRepository) Save(ctx context.Context, session *float.CxSession) error {
	return r.SaveWithLock(ctx, session)
}

// SaveWithLock writes the session only if the stored version is the one it was
// loaded with, then syncs stacks and entries in the same transaction.
func (r *GormSessionRepository) SaveWithLock(ctx context.Context, session *float.CxSession) error {
	loaded := session.LoadedVersion()
	if loaded > 0 && session.Version <= loaded {
		session.IncrementVersion()
	}
	model := models.CxSessionModelFromDomain(session)

	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if loaded == 0 {
			if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
				return err
			}
		} else {
			result := tx.Model(&models.CxSessionModel{}).
				Where("id = ? AND tenant_id = ? AND version = ?", session.ID, session.TenantID, loaded).
				Updates(map[string]any{
					"status":           model.Status,
					"closed_by":        model.ClosedBy,
					"open_started_at":  model.OpenStartedAt,
					"opened_at":        model.OpenedAt,
					"close_started_at": model.CloseStartedAt,
					"closed_at":        model.ClosedAt,
					"version":          model.Version,
					"updated_at":       model.UpdatedAt,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.ErrConcurrencyConflict
			}
		}
		return r.syncStacks(tx, model)
	})
	if err != nil {
		// a second active session on the repository
		if isUniqueViolation(err) {
			return shared.ErrConcurrencyConflict
		}
		return err
	}
	session.MarkLoaded()
	return nil
}

func (r *GormSessionRepository) syncStacks(tx *gorm.DB, model *models.CxSessionModel) error {
	stackIDs := make([]uuid.UUID, len(model.Stacks))
	for i, st := range model.Stacks {
		stackIDs[i] = st.ID
	}

	staleStacks := tx.Model(&models.FloatStackModel{}).Select("id").Where("session_id = ?", model.ID)
	if len(stackIDs) > 0 {
		staleStacks = staleStacks.Where("id NOT IN ?", stackIDs)
	}
	if err := tx.Where("stack_id IN (?)", staleStacks).Delete(&models.FloatEntryModel{}).Error; err != nil {
		return err
	}
	deleteStacks := tx.Where("session_id = ?", model.ID)
	if len(stackIDs) > 0 {
		deleteStacks = deleteStacks.Where("id NOT IN ?", stackIDs)
	}
	if err := deleteStacks.Delete(&models.FloatStackModel{}).Error; err != nil {
		return err
	}

	for i := range model.Stacks {
		stack := &model.Stacks[i]
		if err := tx.Omit(clause.Associations).Save(stack).Error; err != nil {
			return err
		}
		entryIDs := make([]uuid.UUID, len(stack.Entries))
		for j, e := range stack.Entries {
			entryIDs[j] = e.ID
		}
		staleEntries := tx.Where("stack_id = ?", stack.ID)
		if len(entryIDs) > 0 {
			staleEntries = staleEntries.Where("id NOT IN ?", entryIDs)
		}
		if err := staleEntries.Delete(&models.FloatEntryModel{}).Error; err != nil {
			return err
		}
		for j := range stack.Entries {
			if err := tx.Save(&stack.Entries[j]).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteForTenant deletes a session with its stacks and entries
func (r *GormSessionRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.CxSessionModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		stacks := tx.Model(&models.FloatStackModel{}).Select("id").Where("session_id = ?", id)
		if err := tx.Where("stack_id IN (?)", stacks).Delete(&models.FloatEntryModel{}).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", id).Delete(&models.FloatStackModel{}).Error
	})
}

func (r *GormSessionRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for _, col := range []string{"repository_id", "status", "opened_by"} {
		if v, ok := filter.Filters[col]; ok && v != "" {
			query = query.Where(col+" = ?", v)
		}
	}
	return query
}

var _ float.SessionRepository = (*GormSessionRepository)(nil)
