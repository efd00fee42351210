package trade

import (
	"strings"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SubjectType is what a note is attached to
type SubjectType string

const (
	SubjectOrder    SubjectType = "ORDER"
	SubjectCustomer SubjectType = "CUSTOMER"
	SubjectSession  SubjectType = "SESSION"
)

// IsValid checks if the subject type is valid
func (s SubjectType) IsValid() bool {
	switch s {
	case SubjectOrder, SubjectCustomer, SubjectSession:
		return true
	}
	return false
}

// MaxNoteLength bounds a note body
const MaxNoteLength = 4000

// Note is a free-text remark left by a user on an order, customer or session
type Note struct {
	shared.TenantAggregateRoot
	SubjectType SubjectType
	SubjectID   uuid.UUID
	AuthorID    uuid.UUID
	Body        string
	EditedAt    *time.Time
}

// NewNote creates a note
func NewNote(tenantID uuid.UUID, subjectType SubjectType, subjectID, authorID uuid.UUID, body string) (*Note, error) {
	if !subjectType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SUBJECT", "Subject type must be ORDER, CUSTOMER or SESSION")
	}
	if subjectID == uuid.Nil || authorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUBJECT", "Subject and author are required")
	}
	body, err := normalizeNoteBody(body)
	if err != nil {
		return nil, err
	}
	n := &Note{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SubjectType:         subjectType,
		SubjectID:           subjectID,
		AuthorID:            authorID,
		Body:                body,
	}
	n.SetCreatedBy(authorID)
	return n, nil
}

// Edit replaces the body; only the author may edit
func (n *Note) Edit(body string, by uuid.UUID, at time.Time) error {
	if by != n.AuthorID {
		return shared.NewDomainError("FORBIDDEN", "Only the author can edit a note")
	}
	body, err := normalizeNoteBody(body)
	if err != nil {
		return err
	}
	n.Body = body
	n.EditedAt = &at
	n.IncrementVersion()
	return nil
}

// CanDelete returns an error unless the user is the author or an admin
func (n *Note) CanDelete(userID uuid.UUID, isAdmin bool) error {
	if isAdmin || userID == n.AuthorID {
		return nil
	}
	return shared.NewDomainError("FORBIDDEN", "Only the author or an admin can delete a note")
}

func normalizeNoteBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", shared.NewDomainError("INVALID_NOTE", "Note cannot be empty")
	}
	if len(body) > MaxNoteLength {
		return "", shared.NewDomainError("INVALID_NOTE", "Note cannot exceed 4000 characters")
	}
	return body, nil
}
