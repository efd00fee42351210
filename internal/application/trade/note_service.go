package trade

import (
	"context"
	"time"

	"github.com/fxoffice/backend/internal/domain/trade"
	"github.com/google/uuid"
)

// NoteService handles notes on orders, customers and sessions
type NoteService struct {
	noteRepo trade.NoteRepository
	now      func() time.Time
}

// NewNoteService creates a new NoteService
func NewNoteService(noteRepo trade.NoteRepository) *NoteService {
	return &NoteService{noteRepo: noteRepo, now: time.Now}
}

// AddNote attaches a note authored by the actor
func (s *NoteService) AddNote(ctx context.Context, tenantID uuid.UUID, actor Actor, req CreateNoteRequest) (*NoteResponse, error) {
	note, err := trade.NewNote(tenantID, trade.SubjectType(req.SubjectType), req.SubjectID, actor.UserID, req.Body)
	if err != nil {
		return nil, err
	}
	if err := s.noteRepo.Save(ctx, note); err != nil {
		return nil, err
	}
	resp := ToNoteResponse(note)
	return &resp, nil
}

// ListNotes returns the notes of one subject, oldest first
func (s *NoteService) ListNotes(ctx context.Context, tenantID uuid.UUID, subjectType string, subjectID uuid.UUID) ([]NoteResponse, error) {
	notes, err := s.noteRepo.FindBySubject(ctx, tenantID, trade.SubjectType(subjectType), subjectID)
	if err != nil {
		return nil, err
	}
	out := make([]NoteResponse, len(notes))
	for i := range notes {
		out[i] = ToNoteResponse(&notes[i])
	}
	return out, nil
}

// UpdateNote edits a note; only its author may
func (s *NoteService) UpdateNote(ctx context.Context, tenantID, noteID uuid.UUID, actor Actor, req UpdateNoteRequest) (*NoteResponse, error) {
	note, err := s.noteRepo.FindByIDForTenant(ctx, tenantID, noteID)
	if err != nil {
		return nil, err
	}
	if err := note.Edit(req.Body, actor.UserID, s.now()); err != nil {
		return nil, err
	}
	if err := s.noteRepo.Save(ctx, note); err != nil {
		return nil, err
	}
	resp := ToNoteResponse(note)
	return &resp, nil
}

// DeleteNote removes a note; only the author or an admin may
func (s *NoteService) DeleteNote(ctx context.Context, tenantID, noteID uuid.UUID, actor Actor) error {
	note, err := s.noteRepo.FindByIDForTenant(ctx, tenantID, noteID)
	if err != nil {
		return err
	}
	if err := note.CanDelete(actor.UserID, actor.IsAdmin); err != nil {
		return err
	}
	return s.noteRepo.DeleteForTenant(ctx, tenantID, noteID)
}
