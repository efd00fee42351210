// Package identityprovider talks to the hosted identity provider's management API.
package identityprovider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/infrastructure/config"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const membershipPageSize = 100

// Client implements identity.Provider over the provider's REST API
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a provider client from configuration
func NewClient(cfg config.IdentityConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetAuthToken(cfg.SecretKey).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "fxoffice-backend").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		})

	return &Client{http: rc, logger: logger}
}

// CreateOrganization creates an organization owned by in.CreatedBy
func (c *Client) CreateOrganization(ctx context.Context, in identity.ProviderOrganizationInput) (*identity.ProviderOrganization, error) {
	body := map[string]any{"name": in.Name}
	if in.Slug != "" {
		body["slug"] = in.Slug
	}
	if in.CreatedBy != "" {
		body["created_by"] = in.CreatedBy
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post("/organizations")
	if err := c.check("create organization", resp, err); err != nil {
		return nil, err
	}
	return parseOrganization(gjson.ParseBytes(resp.Body())), nil
}

// UpdateOrganization updates name and slug, leaving empty fields untouched
func (c *Client) UpdateOrganization(ctx context.Context, orgID string, in identity.ProviderOrganizationInput) (*identity.ProviderOrganization, error) {
	body := map[string]any{}
	if in.Name != "" {
		body["name"] = in.Name
	}
	if in.Slug != "" {
		body["slug"] = in.Slug
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(body).
		Patch("/organizations/" + url.PathEscape(orgID))
	if err := c.check("update organization", resp, err); err != nil {
		return nil, err
	}
	return parseOrganization(gjson.ParseBytes(resp.Body())), nil
}

// DeleteOrganization deletes an organization at the provider
func (c *Client) DeleteOrganization(ctx context.Context, orgID string) error {
	resp, err := c.http.R().SetContext(ctx).Delete("/organizations/" + url.PathEscape(orgID))
	return c.check("delete organization", resp, err)
}

// ListMemberships pages through every membership of an organization
func (c *Client) ListMemberships(ctx context.Context, orgID string) ([]identity.ProviderMembership, error) {
	var out []identity.ProviderMembership
	for offset := 0; ; offset += membershipPageSize {
		resp, err := c.http.R().SetContext(ctx).
			SetQueryParam("limit", fmt.Sprint(membershipPageSize)).
			SetQueryParam("offset", fmt.Sprint(offset)).
			Get("/organizations/" + url.PathEscape(orgID) + "/memberships")
		if err := c.check("list memberships", resp, err); err != nil {
			return nil, err
		}

		doc := gjson.ParseBytes(resp.Body())
		page := doc.Get("data").Array()
		for _, item := range page {
			out = append(out, parseMembership(item))
		}
		total := int(doc.Get("total_count").Int())
		if len(page) < membershipPageSize || len(out) >= total {
			break
		}
	}
	return out, nil
}

// CreateMembership adds a user to an organization
func (c *Client) CreateMembership(ctx context.Context, orgID, userID string, role identity.Role) (*identity.ProviderMembership, error) {
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]any{"user_id": userID, "role": role.ProviderRole()}).
		Post("/organizations/" + url.PathEscape(orgID) + "/memberships")
	if err := c.check("create membership", resp, err); err != nil {
		return nil, err
	}
	m := parseMembership(gjson.ParseBytes(resp.Body()))
	return &m, nil
}

// UpdateMembership changes a member's role
func (c *Client) UpdateMembership(ctx context.Context, orgID, userID string, role identity.Role) (*identity.ProviderMembership, error) {
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]any{"role": role.ProviderRole()}).
		Patch("/organizations/" + url.PathEscape(orgID) + "/memberships/" + url.PathEscape(userID))
	if err := c.check("update membership", resp, err); err != nil {
		return nil, err
	}
	m := parseMembership(gjson.ParseBytes(resp.Body()))
	return &m, nil
}

// DeleteMembership removes a user from an organization
func (c *Client) DeleteMembership(ctx context.Context, orgID, userID string) error {
	resp, err := c.http.R().SetContext(ctx).
		Delete("/organizations/" + url.PathEscape(orgID) + "/memberships/" + url.PathEscape(userID))
	return c.check("delete membership", resp, err)
}

// SetActiveOrganization patches a session's active organization
func (c *Client) SetActiveOrganization(ctx context.Context, sessionID, orgID string) error {
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]any{"active_organization_id": orgID}).
		Patch("/sessions/" + url.PathEscape(sessionID))
	return c.check("set active organization", resp, err)
}

// check converts transport failures and non-2xx responses into domain errors.
// Client errors keep the provider's message; everything else is EXTERNAL_SERVICE_ERROR.
func (c *Client) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Warn("identity provider request failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", shared.ErrExternalService, op, err)
	}
	if resp.IsSuccess() {
		return nil
	}

	msg := providerMessage(resp.Body())
	c.logger.Warn("identity provider returned error",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode()),
		zap.String("message", msg))

	switch resp.StatusCode() {
	case http.StatusNotFound:
		return shared.NewDomainError(shared.ErrNotFound.Code, msg)
	case http.StatusConflict:
		return shared.NewDomainError(shared.ErrAlreadyExists.Code, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return shared.NewDomainError(shared.ErrInvalidInput.Code, msg)
	case http.StatusForbidden:
		return shared.NewDomainError(shared.ErrForbidden.Code, msg)
	}
	return fmt.Errorf("%w: %s: status %d: %s", shared.ErrExternalService, op, resp.StatusCode(), msg)
}

func providerMessage(body []byte) string {
	doc := gjson.ParseBytes(body)
	for _, path := range []string{"errors.0.long_message", "errors.0.message", "message"} {
		if v := doc.Get(path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return "identity provider request failed"
}

func parseOrganization(r gjson.Result) *identity.ProviderOrganization {
	return &identity.ProviderOrganization{
		ID:       r.Get("id").String(),
		Name:     r.Get("name").String(),
		Slug:     r.Get("slug").String(),
		ImageURL: r.Get("image_url").String(),
	}
}

func parseMembership(r gjson.Result) identity.ProviderMembership {
	role, err := identity.ParseRole(r.Get("role").String())
	if err != nil {
		role = identity.RoleMember
	}
	return identity.ProviderMembership{
		ID:             r.Get("id").String(),
		OrganizationID: r.Get("organization.id").String(),
		UserID:         r.Get("public_user_data.user_id").String(),
		Role:           role,
		Email:          r.Get("public_user_data.identifier").String(),
		FirstName:      r.Get("public_user_data.first_name").String(),
		LastName:       r.Get("public_user_data.last_name").String(),
		ImageURL:       r.Get("public_user_data.image_url").String(),
	}
}

var _ identity.Provider = (*Client)(nil)
