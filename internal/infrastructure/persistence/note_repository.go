package persistence

import (
	"context"
	"errors"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/trade"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormNoteRepository implements trade.NoteRepository using GORM
type GormNoteRepository struct {
	db *gorm.DB
}

// NewGormNoteRepository creates a new GormNoteRepository
func NewGormNoteRepository(db *gorm.DB) *GormNoteRepository {
	return &GormNoteRepository{db: db}
}

// FindByIDForTenant finds a note by ID within a tenant
func (r *GormNoteRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.Note, error) {
	var model models.NoteModel
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

// FindBySubject lists the notes on an order, customer or session, newest first
func (r *GormNoteRepository) FindBySubject(ctx context.Context, tenantID uuid.UUID, subjectType trade.SubjectType, subjectID uuid.UUID) ([]trade.Note, error) {
	var rows []models.NoteModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND subject_type = ? AND subject_id = ?", tenantID, subjectType, subjectID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	notes := make([]trade.Note, len(rows))
	for i := range rows {
		notes[i] = *rows[i].ToDomain()
	}
	return notes, nil
}

// Save creates or updates a note
func (r *GormNoteRepository) Save(ctx context.Context, note *trade.Note) error {
	if err := conn(ctx, r.db).Save(models.NoteModelFromDomain(note)).Error; err != nil {
		return translateError(err)
	}
	note.MarkLoaded()
	return nil
}

// DeleteForTenant deletes a note
func (r *GormNoteRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := conn(ctx, r.db).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.NoteModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ trade.NoteRepository = (*GormNoteRepository)(nil)
