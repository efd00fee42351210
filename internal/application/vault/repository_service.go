package vault

import (
	"context"
	"strings"

	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/google/uuid"
)

// ActiveSessionChecker reports whether a repository has a session that is not yet closed
type ActiveSessionChecker interface {
	HasActiveSession(ctx context.Context, tenantID, repositoryID uuid.UUID) (bool, error)
}

// RepositoryService handles repository and access list operations
type RepositoryService struct {
	repoRepo   vault.RepositoryRepository
	memberRepo identity.MembershipRepository
	userRepo   identity.UserRepository
	sessions   ActiveSessionChecker
	publisher  shared.EventPublisher
}

// NewRepositoryService creates a new RepositoryService
func NewRepositoryService(
	repoRepo vault.RepositoryRepository,
	memberRepo identity.MembershipRepository,
	userRepo identity.UserRepository,
	sessions ActiveSessionChecker,
) *RepositoryService {
	return &RepositoryService{
		repoRepo:   repoRepo,
		memberRepo: memberRepo,
		userRepo:   userRepo,
		sessions:   sessions,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *RepositoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Create creates a new repository
func (s *RepositoryService) Create(ctx context.Context, tenantID uuid.UUID, req CreateRepositoryRequest) (*RepositoryResponse, error) {
	key := vault.NormalizeRepositoryKey(req.Key)
	exists, err := s.repoRepo.ExistsByKey(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "Repository with this key already exists")
	}

	repo, err := vault.NewRepository(tenantID, key, req.Name, vault.RepositoryType(req.Type))
	if err != nil {
		return nil, err
	}
	if req.Description != "" {
		if err := repo.Update(repo.Name, req.Description); err != nil {
			return nil, err
		}
	}
	if req.CreatedBy != nil {
		repo.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.repoRepo.Save(ctx, repo); err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, repo); err != nil {
		return nil, err
	}

	resp := ToRepositoryResponse(repo)
	return &resp, nil
}

// GetByID retrieves a repository by ID
func (s *RepositoryService) GetByID(ctx context.Context, tenantID, repoID uuid.UUID) (*RepositoryResponse, error) {
	repo, err := s.repoRepo.FindByIDForTenant(ctx, tenantID, repoID)
	if err != nil {
		return nil, err
	}
	resp := ToRepositoryResponse(repo)
	return &resp, nil
}

// GetByKey retrieves a repository by its key
func (s *RepositoryService) GetByKey(ctx context.Context, tenantID uuid.UUID, key string) (*RepositoryResponse, error) {
	repo, err := s.repoRepo.FindByKey(ctx, tenantID, vault.NormalizeRepositoryKey(key))
	if err != nil {
		return nil, err
	}
	resp := ToRepositoryResponse(repo)
	return &resp, nil
}

// List retrieves a list of repositories with filtering and pagination
func (s *RepositoryService) List(ctx context.Context, tenantID uuid.UUID, filter RepositoryListFilter) ([]RepositoryResponse, int64, error) {
	domainFilter := toDomainFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, "key", "asc")
	domainFilter.Search = filter.Search
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Type != "" {
		domainFilter.Filters["type"] = filter.Type
	}

	repos, err := s.repoRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repoRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToRepositoryResponses(repos), total, nil
}

// ListForUser returns the repositories a user may operate. Admins see all active repositories.
func (s *RepositoryService) ListForUser(ctx context.Context, tenantID, userID uuid.UUID, isAdmin bool) ([]RepositoryResponse, error) {
	if isAdmin {
		filter := shared.DefaultFilter()
		filter.PageSize = 0
		filter.OrderBy = "key"
		filter.OrderDir = "asc"
		filter.Filters["status"] = string(vault.RepositoryStatusActive)
		repos, err := s.repoRepo.FindAllForTenant(ctx, tenantID, filter)
		if err != nil {
			return nil, err
		}
		return ToRepositoryResponses(repos), nil
	}
	repos, err := s.repoRepo.FindAuthorizedForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	return ToRepositoryResponses(repos), nil
}

// Update updates a repository's display fields
func (s *RepositoryService) Update(ctx context.Context, tenantID, repoID uuid.UUID, req UpdateRepositoryRequest) (*RepositoryResponse, error) {
	repo, err := s.repoRepo.FindByIDForTenant(ctx, tenantID, repoID)
	if err != nil {
		return nil, err
	}

	name := repo.Name
	if req.Name != nil {
		name = *req.Name
	}
	description := repo.Description
	if req.Description != nil {
		description = *req.Description
	}
	if err := repo.Update(name, description); err != nil {
		return nil, err
	}

	if err := s.repoRepo.Save(ctx, repo); err != nil {
		return nil, err
	}
	resp := ToRepositoryResponse(repo)
	return &resp, nil
}

// Activate reopens a repository for sessions
func (s *RepositoryService) Activate(ctx context.Context, tenantID, repoID uuid.UUID) (*RepositoryResponse, error) {
	repo, err := s.repoRepo.FindByIDForTenant(ctx, tenantID, repoID)
	if err != nil {
		return nil, err
	}
	if err := repo.Activate(); err != nil {
		return nil, err
	}
	if err := s.repoRepo.Save(ctx, repo); err != nil {
		return nil, err
	}
	resp := ToRepositoryResponse(repo)
	return &resp, nil
}

// Deactivate closes a repository to new sessions. It fails while a session is open.
func (s *RepositoryService) Deactivate(ctx context.Context, tenantID, repoID uuid.UUID) (*RepositoryResponse, error) {
	repo, err := s.repoRepo.FindByIDForTenant(ctx, tenantID, repoID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureIdle(ctx, tenantID, repoID); err != nil {
		return nil, err
	}
	if err := repo.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.repoRepo.Save(ctx, repo); err != nil {
		return nil, err
	}
	resp := ToRepositoryResponse(repo)
	return &resp, nil
}

// Delete deletes a repository. It fails while a session is open.
func (s *RepositoryService) Delete(ctx context.Context, tenantID, repoID uuid.UUID) error {
	if _, err := s.repoRepo.FindByIDForTenant(ctx, tenantID, repoID); err != nil {
		return err
	}
	if err := s.ensureIdle(ctx, tenantID, repoID); err != nil {
		return err
	}
	return s.repoRepo.DeleteForTenant(ctx, tenantID, repoID)
}

// AuthorizeUser adds an organization member to the repository's access list
func (s *RepositoryService) AuthorizeUser(ctx context.Context, tenantID, repoID, userID uuid.UUID) (*RepositoryResponse, error) {
	repo, err := s.repoRepo.FindByIDForTenant(ctx, tenantID, repoID)
	if err != nil {
		return nil, err
	}
	if _, err := s.memberRepo.Find(ctx, tenantID, userID); err != nil {
		if de, ok := shared.AsDomainError(err); ok && de.Code == shared.ErrNotFound.Code {
			return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "User is not a member of this organization")
		}
		return nil, err
	}
	if err := repo.Authorize(userID); err != nil {
		return nil, err
	}
	if err := s.repoRepo.Save(ctx, repo); err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, repo); err != nil {
		return nil, err
	}
	resp := ToRepositoryResponse(repo)
	return &resp, nil
}

// RevokeUser removes a user from the repository's access list
func (s *RepositoryService) RevokeUser(ctx context.Context, tenantID, repoID, userID uuid.UUID) (*RepositoryResponse, error) {
	repo, err := s.repoRepo.FindByIDForTenant(ctx, tenantID, repoID)
	if err != nil {
		return nil, err
	}
	if err := repo.Revoke(userID); err != nil {
		return nil, err
	}
	if err := s.repoRepo.Save(ctx, repo); err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.publisher, repo); err != nil {
		return nil, err
	}
	resp := ToRepositoryResponse(repo)
	return &resp, nil
}

// ListAuthorizedUsers returns the users on the repository's access list
func (s *RepositoryService) ListAuthorizedUsers(ctx context.Context, tenantID, repoID uuid.UUID) ([]AuthorizedUserResponse, error) {
	repo, err := s.repoRepo.FindByIDForTenant(ctx, tenantID, repoID)
	if err != nil {
		return nil, err
	}
	if len(repo.AuthorizedUsers) == 0 {
		return []AuthorizedUserResponse{}, nil
	}
	users, err := s.userRepo.FindByIDs(ctx, repo.AuthorizedUsers)
	if err != nil {
		return nil, err
	}
	out := make([]AuthorizedUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, AuthorizedUserResponse{
			UserID:    u.ID,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		})
	}
	return out, nil
}

// IsAuthorized reports whether a user may operate the repository. Admins are always authorized.
func (s *RepositoryService) IsAuthorized(ctx context.Context, tenantID, repoID, userID uuid.UUID, isAdmin bool) (bool, error) {
	repo, err := s.repoRepo.FindByIDForTenant(ctx, tenantID, repoID)
	if err != nil {
		return false, err
	}
	return isAdmin || repo.IsAuthorized(userID), nil
}

func (s *RepositoryService) ensureIdle(ctx context.Context, tenantID, repoID uuid.UUID) error {
	if s.sessions == nil {
		return nil
	}
	active, err := s.sessions.HasActiveSession(ctx, tenantID, repoID)
	if err != nil {
		return err
	}
	if active {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Repository has an open session")
	}
	return nil
}

func toDomainFilter(page, pageSize int, orderBy, orderDir, defaultOrderBy, defaultOrderDir string) shared.Filter {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if orderBy == "" {
		orderBy = defaultOrderBy
	}
	if orderDir == "" {
		orderDir = defaultOrderDir
	}
	return shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  orderBy,
		OrderDir: orderDir,
		Filters:  make(map[string]any),
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
