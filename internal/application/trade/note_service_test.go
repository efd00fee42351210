package trade

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryNotes struct {
	mu    sync.Mutex
	notes map[uuid.UUID]*trade.Note
}

func newMemoryNotes() *memoryNotes {
	return &memoryNotes{notes: make(map[uuid.UUID]*trade.Note)}
}

func (r *memoryNotes) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*trade.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok || n.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return n, nil
}

func (r *memoryNotes) FindBySubject(_ context.Context, tenantID uuid.UUID, subjectType trade.SubjectType, subjectID uuid.UUID) ([]trade.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]trade.Note, 0)
	for _, n := range r.notes {
		if n.TenantID == tenantID && n.SubjectType == subjectType && n.SubjectID == subjectID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryNotes) Save(_ context.Context, n *trade.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[n.ID] = n
	return nil
}

func (r *memoryNotes) DeleteForTenant(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.notes, id)
	return nil
}

func TestNoteService(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	author := Actor{UserID: uuid.New()}
	other := Actor{UserID: uuid.New()}
	orderID := uuid.New()

	newService := func() (*NoteService, *memoryNotes) {
		repo := newMemoryNotes()
		svc := NewNoteService(repo)
		svc.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }
		return svc, repo
	}

	t.Run("add and list", func(t *testing.T) {
		svc, _ := newService()

		created, err := svc.AddNote(ctx, tenantID, author, CreateNoteRequest{SubjectType: "ORDER", SubjectID: orderID, Body: "  customer paid in small notes "})
		require.NoError(t, err)
		assert.Equal(t, "customer paid in small notes", created.Body)
		assert.Equal(t, author.UserID, created.AuthorID)

		_, err = svc.AddNote(ctx, tenantID, author, CreateNoteRequest{SubjectType: "CUSTOMER", SubjectID: uuid.New(), Body: "regular"})
		require.NoError(t, err)

		notes, err := svc.ListNotes(ctx, tenantID, "ORDER", orderID)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, created.ID, notes[0].ID)
	})

	t.Run("empty body", func(t *testing.T) {
		svc, _ := newService()

		_, err := svc.AddNote(ctx, tenantID, author, CreateNoteRequest{SubjectType: "ORDER", SubjectID: orderID, Body: "   "})

		assert.Equal(t, "INVALID_NOTE", domainCode(err))
	})

	t.Run("only the author edits", func(t *testing.T) {
		svc, _ := newService()
		created, err := svc.AddNote(ctx, tenantID, author, CreateNoteRequest{SubjectType: "SESSION", SubjectID: uuid.New(), Body: "till short by 5"})
		require.NoError(t, err)

		_, err = svc.UpdateNote(ctx, tenantID, created.ID, other, UpdateNoteRequest{Body: "changed"})
		assert.Equal(t, "FORBIDDEN", domainCode(err))

		updated, err := svc.UpdateNote(ctx, tenantID, created.ID, author, UpdateNoteRequest{Body: "till short by 5, found later"})
		require.NoError(t, err)
		assert.Equal(t, "till short by 5, found later", updated.Body)
		assert.NotNil(t, updated.EditedAt)
	})

	t.Run("author or admin deletes", func(t *testing.T) {
		svc, repo := newService()
		created, err := svc.AddNote(ctx, tenantID, author, CreateNoteRequest{SubjectType: "ORDER", SubjectID: orderID, Body: "note"})
		require.NoError(t, err)

		err = svc.DeleteNote(ctx, tenantID, created.ID, other)
		assert.Equal(t, "FORBIDDEN", domainCode(err))

		err = svc.DeleteNote(ctx, tenantID, created.ID, Actor{UserID: other.UserID, IsAdmin: true})
		require.NoError(t, err)
		_, err = repo.FindByIDForTenant(ctx, tenantID, created.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
