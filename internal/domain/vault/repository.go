package vault

import (
	"regexp"
	"slices"
	"strings"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// RepositoryType distinguishes physical cash holdings from crypto wallets
type RepositoryType string

const (
	RepositoryTypeCash   RepositoryType = "CASH"
	RepositoryTypeCrypto RepositoryType = "CRYPTO"
)

// IsValid checks if the repository type is valid
func (t RepositoryType) IsValid() bool {
	return t == RepositoryTypeCash || t == RepositoryTypeCrypto
}

// RepositoryStatus represents the status of a repository
type RepositoryStatus string

const (
	RepositoryStatusActive   RepositoryStatus = "ACTIVE"
	RepositoryStatusInactive RepositoryStatus = "INACTIVE"
)

var repositoryKeyPattern = regexp.MustCompile(`^[A-Z0-9_-]{2,32}$`)

// Repository is a named location holding cash or crypto for an organization,
// such as a till, a safe or a hot wallet. Tellers open float sessions against it.
type Repository struct {
	shared.TenantAggregateRoot
	Key             string
	Name            string
	Description     string
	Type            RepositoryType
	Status          RepositoryStatus
	AuthorizedUsers []uuid.UUID
}

// NewRepository creates a new active repository. The key is stored uppercase.
func NewRepository(tenantID uuid.UUID, key, name string, repoType RepositoryType) (*Repository, error) {
	key = NormalizeRepositoryKey(key)
	if err := validateRepositoryKey(key); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validateRepositoryName(name); err != nil {
		return nil, err
	}
	if !repoType.IsValid() {
		return nil, shared.NewDomainError("INVALID_REPOSITORY_TYPE", "Repository type must be CASH or CRYPTO")
	}

	repo := &Repository{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Key:                 key,
		Name:                name,
		Type:                repoType,
		Status:              RepositoryStatusActive,
		AuthorizedUsers:     make([]uuid.UUID, 0),
	}
	repo.AddDomainEvent(NewRepositoryCreatedEvent(repo))
	return repo, nil
}

// NormalizeRepositoryKey trims and uppercases a key
func NormalizeRepositoryKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Update changes the display fields
func (r *Repository) Update(name, description string) error {
	name = strings.TrimSpace(name)
	if err := validateRepositoryName(name); err != nil {
		return err
	}
	if len(description) > 500 {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 500 characters")
	}
	r.Name = name
	r.Description = description
	r.IncrementVersion()
	return nil
}

// Authorize grants a user access to operate this repository
func (r *Repository) Authorize(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if r.IsAuthorized(userID) {
		return shared.NewDomainError("ALREADY_AUTHORIZED", "User is already authorized on this repository")
	}
	r.AuthorizedUsers = append(r.AuthorizedUsers, userID)
	r.IncrementVersion()
	r.AddDomainEvent(NewRepositoryAccessChangedEvent(r, userID, true))
	return nil
}

// Revoke removes a user's access
func (r *Repository) Revoke(userID uuid.UUID) error {
	idx := slices.Index(r.AuthorizedUsers, userID)
	if idx < 0 {
		return shared.NewDomainError("NOT_AUTHORIZED", "User is not authorized on this repository")
	}
	r.AuthorizedUsers = slices.Delete(r.AuthorizedUsers, idx, idx+1)
	r.IncrementVersion()
	r.AddDomainEvent(NewRepositoryAccessChangedEvent(r, userID, false))
	return nil
}

// IsAuthorized reports whether the user is on the repository's access list.
// Organization admins bypass this check at the service layer.
func (r *Repository) IsAuthorized(userID uuid.UUID) bool {
	return slices.Contains(r.AuthorizedUsers, userID)
}

// Activate reopens the repository for sessions
func (r *Repository) Activate() error {
	if r.Status == RepositoryStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Repository is already active")
	}
	r.Status = RepositoryStatusActive
	r.IncrementVersion()
	return nil
}

// Deactivate stops new sessions from being opened.
// Callers must ensure no session is open on the repository.
func (r *Repository) Deactivate() error {
	if r.Status == RepositoryStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Repository is already inactive")
	}
	r.Status = RepositoryStatusInactive
	r.IncrementVersion()
	return nil
}

// IsActive returns true if the repository is active
func (r *Repository) IsActive() bool {
	return r.Status == RepositoryStatusActive
}

func validateRepositoryKey(key string) error {
	if !repositoryKeyPattern.MatchString(key) {
		return shared.NewDomainError("INVALID_REPOSITORY_KEY", "Key must be 2-32 characters of A-Z, 0-9, '_' or '-'")
	}
	return nil
}

func validateRepositoryName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Repository name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Repository name cannot exceed 100 characters")
	}
	return nil
}
