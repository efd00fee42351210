package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/fxoffice/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Provider webhook event types
const (
	WebhookOrganizationCreated = "organization.created"
	WebhookOrganizationUpdated = "organization.updated"
	WebhookOrganizationDeleted = "organization.deleted"
	WebhookMembershipCreated   = "organizationMembership.created"
	WebhookMembershipUpdated   = "organizationMembership.updated"
	WebhookMembershipDeleted   = "organizationMembership.deleted"
	WebhookUserCreated         = "user.created"
	WebhookUserUpdated         = "user.updated"
	WebhookUserDeleted         = "user.deleted"
	WebhookSessionEnded        = "session.ended"
	WebhookSessionRemoved      = "session.removed"
	WebhookSessionRevoked      = "session.revoked"
)

// revokedSessionTTL bounds how long a revocation is kept when the payload carries no expiry
const revokedSessionTTL = 24 * time.Hour

type webhookOrganization struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ImageURL string `json:"image_url"`
	Deleted  bool   `json:"deleted"`
}

type webhookPublicUser struct {
	UserID     string `json:"user_id"`
	Identifier string `json:"identifier"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	ImageURL   string `json:"image_url"`
}

type webhookMembership struct {
	ID             string              `json:"id"`
	Role           string              `json:"role"`
	Organization   webhookOrganization `json:"organization"`
	PublicUserData webhookPublicUser   `json:"public_user_data"`
}

type webhookEmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type webhookUser struct {
	ID                    string                `json:"id"`
	FirstName             string                `json:"first_name"`
	LastName              string                `json:"last_name"`
	ImageURL              string                `json:"image_url"`
	PrimaryEmailAddressID string                `json:"primary_email_address_id"`
	EmailAddresses        []webhookEmailAddress `json:"email_addresses"`
	Deleted               bool                  `json:"deleted"`
}

func (u webhookUser) primaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

type webhookSession struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	ExpireAt int64  `json:"expire_at"` // unix milliseconds
}

// SyncFromWebhook mirrors a provider event locally. Each message id is applied at most once;
// a failed delivery is forgotten so the provider's retry can apply it.
func (s *OrganizationService) SyncFromWebhook(ctx context.Context, event WebhookEvent) error {
	if event.MessageID == "" || event.Type == "" {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Webhook message id and type are required")
	}

	if s.idempotency != nil {
		fresh, err := s.idempotency.MarkProcessed(ctx, event.MessageID, shared.DefaultIdempotencyTTL)
		if err != nil {
			return fmt.Errorf("failed to check webhook idempotency: %w", err)
		}
		if !fresh {
			s.logger.Debug("duplicate webhook delivery ignored",
				zap.String("message_id", event.MessageID),
				zap.String("type", event.Type))
			return nil
		}
	}

	if err := s.applyWebhook(ctx, event); err != nil {
		if s.idempotency != nil {
			if ferr := s.idempotency.Forget(ctx, event.MessageID); ferr != nil {
				s.logger.Warn("failed to release webhook message id",
					zap.String("message_id", event.MessageID), zap.Error(ferr))
			}
		}
		return err
	}
	return nil
}

func (s *OrganizationService) applyWebhook(ctx context.Context, event WebhookEvent) error {
	switch event.Type {
	case WebhookOrganizationCreated, WebhookOrganizationUpdated:
		var data webhookOrganization
		if err := decodeWebhook(event, &data); err != nil {
			return err
		}
		_, err := s.upsertOrganization(ctx, data)
		return err

	case WebhookOrganizationDeleted:
		var data webhookOrganization
		if err := decodeWebhook(event, &data); err != nil {
			return err
		}
		return s.deactivateOrganization(ctx, data.ID)

	case WebhookMembershipCreated, WebhookMembershipUpdated:
		var data webhookMembership
		if err := decodeWebhook(event, &data); err != nil {
			return err
		}
		return s.upsertMembership(ctx, data)

	case WebhookMembershipDeleted:
		var data webhookMembership
		if err := decodeWebhook(event, &data); err != nil {
			return err
		}
		return s.deleteMembership(ctx, data)

	case WebhookUserCreated, WebhookUserUpdated:
		var data webhookUser
		if err := decodeWebhook(event, &data); err != nil {
			return err
		}
		_, err := s.upsertUser(ctx, data.ID, data.primaryEmail(), data.FirstName, data.LastName, data.ImageURL)
		return err

	case WebhookUserDeleted:
		var data webhookUser
		if err := decodeWebhook(event, &data); err != nil {
			return err
		}
		return s.disableUser(ctx, data.ID)

	case WebhookSessionEnded, WebhookSessionRemoved, WebhookSessionRevoked:
		var data webhookSession
		if err := decodeWebhook(event, &data); err != nil {
			return err
		}
		return s.revokeSession(ctx, data)
	}

	s.logger.Debug("ignoring unsupported webhook event", zap.String("type", event.Type))
	return nil
}

func decodeWebhook(event WebhookEvent, v any) error {
	if err := json.Unmarshal(event.Data, v); err != nil {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, fmt.Sprintf("Malformed %s payload", event.Type))
	}
	return nil
}

func (s *OrganizationService) upsertOrganization(ctx context.Context, data webhookOrganization) (*identity.Organization, error) {
	if data.ID == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Organization id is missing")
	}

	org, err := s.orgRepo.FindByExternalID(ctx, data.ID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	if org == nil {
		org, err = identity.NewOrganization(data.Name, data.Slug)
		if err != nil {
			return nil, err
		}
		if err := org.LinkExternal(data.ID); err != nil {
			return nil, err
		}
		if data.ImageURL != "" {
			if err := org.SetImageURL(data.ImageURL); err != nil {
				return nil, err
			}
		}
		if err := s.orgRepo.Save(ctx, org); err != nil {
			return nil, err
		}
		if err := s.currencies.EnsureBaseCurrency(ctx, org.ID, org.BaseCurrency); err != nil {
			return nil, err
		}
		s.publish(ctx, org)
		return org, nil
	}

	slug := data.Slug
	if slug == "" {
		slug = org.Slug
	}
	name := data.Name
	if name == "" {
		name = org.Name
	}
	changed := false
	if name != org.Name || slug != org.Slug {
		if err := org.Update(name, slug); err != nil {
			return nil, err
		}
		changed = true
	}
	if data.ImageURL != org.ImageURL {
		if err := org.SetImageURL(data.ImageURL); err != nil {
			return nil, err
		}
		changed = true
	}
	if !org.IsActive() {
		if err := org.Activate(); err != nil {
			return nil, err
		}
		changed = true
	}
	if !changed {
		return org, nil
	}
	if err := s.orgRepo.Save(ctx, org); err != nil {
		return nil, err
	}
	s.publish(ctx, org)
	return org, nil
}

func (s *OrganizationService) deactivateOrganization(ctx context.Context, externalID string) error {
	org, err := s.orgRepo.FindByExternalID(ctx, externalID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if !org.IsActive() {
		return nil
	}
	if err := org.Deactivate(); err != nil {
		return err
	}
	if err := s.orgRepo.Save(ctx, org); err != nil {
		return err
	}
	s.publish(ctx, org)
	return nil
}

func (s *OrganizationService) upsertUser(ctx context.Context, externalID, email, firstName, lastName, imageURL string) (*identity.User, error) {
	if externalID == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "User id is missing")
	}
	user, err := s.userRepo.FindByExternalID(ctx, externalID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if user == nil {
		user, err = identity.NewUser(externalID, email)
		if err != nil {
			return nil, err
		}
	}
	if err := user.UpdateProfile(email, firstName, lastName, imageURL); err != nil {
		return nil, err
	}
	user.Enable()
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.publish(ctx, user)
	return user, nil
}

func (s *OrganizationService) disableUser(ctx context.Context, externalID string) error {
	user, err := s.userRepo.FindByExternalID(ctx, externalID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if !user.IsActive() {
		return nil
	}
	user.Disable()
	return s.userRepo.Save(ctx, user)
}

func (s *OrganizationService) upsertMembership(ctx context.Context, data webhookMembership) error {
	role, err := identity.ParseRole(data.Role)
	if err != nil {
		return err
	}
	org, err := s.upsertOrganization(ctx, data.Organization)
	if err != nil {
		return err
	}
	pub := data.PublicUserData
	user, err := s.upsertUser(ctx, pub.UserID, pub.Identifier, pub.FirstName, pub.LastName, pub.ImageURL)
	if err != nil {
		return err
	}

	membership, err := s.memberRepo.Find(ctx, org.ID, user.ID)
	if err != nil && !isNotFound(err) {
		return err
	}
	action := identity.MembershipAdded
	if membership == nil {
		membership, err = identity.NewMembership(org.ID, user.ID, role)
		if err != nil {
			return err
		}
	} else {
		if membership.Role == role && membership.ExternalID == data.ID {
			return nil
		}
		if err := membership.ChangeRole(role); err != nil {
			return err
		}
		action = identity.MembershipRoleChanged
	}
	membership.ExternalID = data.ID
	if err := s.memberRepo.Save(ctx, membership); err != nil {
		return err
	}
	s.publishEvents(ctx, identity.NewMembershipChangedEvent(membership, action))
	return nil
}

func (s *OrganizationService) deleteMembership(ctx context.Context, data webhookMembership) error {
	org, err := s.orgRepo.FindByExternalID(ctx, data.Organization.ID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	user, err := s.userRepo.FindByExternalID(ctx, data.PublicUserData.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	membership, err := s.memberRepo.Find(ctx, org.ID, user.ID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if err := s.memberRepo.Delete(ctx, org.ID, user.ID); err != nil {
		return err
	}
	s.publishEvents(ctx, identity.NewMembershipChangedEvent(membership, identity.MembershipRemoved))
	return nil
}

func (s *OrganizationService) revokeSession(ctx context.Context, data webhookSession) error {
	if s.revocations == nil || data.ID == "" {
		return nil
	}
	ttl := revokedSessionTTL
	if data.ExpireAt > 0 {
		if until := time.Until(time.UnixMilli(data.ExpireAt)); until > 0 {
			ttl = until
		}
	}
	return s.revocations.Revoke(ctx, data.ID, ttl)
}
