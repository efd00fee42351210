package identity

import (
	"regexp"
	"strings"

	"github.com/fxoffice/backend/internal/domain/shared"
)

// OrganizationStatus represents the status of an organization
type OrganizationStatus string

const (
	OrganizationStatusActive   OrganizationStatus = "active"
	OrganizationStatusInactive OrganizationStatus = "inactive"
)

// DefaultBaseCurrency is used when an organization does not pick one
const DefaultBaseCurrency = "USD"

var (
	slugPattern         = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugInvalidChars    = regexp.MustCompile(`[^a-z0-9]+`)
	currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Organization is the tenant boundary. Every repository, currency, customer,
// session and order belongs to exactly one organization, and the organization's
// ID is the tenant ID carried by those records.
type Organization struct {
	shared.BaseAggregateRoot
	ExternalID   string // identity provider organization id
	Name         string
	Slug         string
	ImageURL     string
	BaseCurrency string
	Status       OrganizationStatus
}

// NewOrganization creates a new organization. An empty slug is derived from the name.
func NewOrganization(name, slug string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if err := validateOrganizationName(name); err != nil {
		return nil, err
	}
	if slug == "" {
		slug = Slugify(name)
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if err := validateSlug(slug); err != nil {
		return nil, err
	}

	org := &Organization{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              slug,
		BaseCurrency:      DefaultBaseCurrency,
		Status:            OrganizationStatusActive,
	}
	org.AddDomainEvent(NewOrganizationCreatedEvent(org))
	return org, nil
}

// LinkExternal records the identity provider's id for this organization
func (o *Organization) LinkExternal(externalID string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return shared.NewDomainError("INVALID_EXTERNAL_ID", "External ID cannot be empty")
	}
	if o.ExternalID != "" && o.ExternalID != externalID {
		return shared.NewDomainError("EXTERNAL_ID_MISMATCH", "Organization is already linked to a different external ID")
	}
	o.ExternalID = externalID
	return nil
}

// Update changes the organization's name and slug
func (o *Organization) Update(name, slug string) error {
	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))
	if err := validateOrganizationName(name); err != nil {
		return err
	}
	if err := validateSlug(slug); err != nil {
		return err
	}

	o.Name = name
	o.Slug = slug
	o.IncrementVersion()
	o.AddDomainEvent(NewOrganizationUpdatedEvent(o))
	return nil
}

// SetImageURL sets the organization's logo URL
func (o *Organization) SetImageURL(url string) error {
	if len(url) > 500 {
		return shared.NewDomainError("INVALID_URL", "Image URL cannot exceed 500 characters")
	}
	o.ImageURL = url
	o.IncrementVersion()
	return nil
}

// SetBaseCurrency changes the currency all rates are quoted against
func (o *Organization) SetBaseCurrency(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !currencyCodePattern.MatchString(code) {
		return shared.NewDomainError("INVALID_CURRENCY_CODE", "Base currency must be a three-letter ISO 4217 code")
	}
	if o.BaseCurrency == code {
		return nil
	}
	o.BaseCurrency = code
	o.IncrementVersion()
	o.AddDomainEvent(NewOrganizationUpdatedEvent(o))
	return nil
}

// Deactivate marks the organization inactive
func (o *Organization) Deactivate() error {
	if o.Status == OrganizationStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Organization is already inactive")
	}
	o.Status = OrganizationStatusInactive
	o.IncrementVersion()
	o.AddDomainEvent(NewOrganizationDeactivatedEvent(o))
	return nil
}

// Activate marks the organization active
func (o *Organization) Activate() error {
	if o.Status == OrganizationStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Organization is already active")
	}
	o.Status = OrganizationStatusActive
	o.IncrementVersion()
	return nil
}

// IsActive returns true if the organization is active
func (o *Organization) IsActive() bool {
	return o.Status == OrganizationStatusActive
}

// Slugify derives a URL-safe slug from a display name
func Slugify(name string) string {
	s := slugInvalidChars.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if len(s) > 64 {
		s = strings.TrimRight(s[:64], "-")
	}
	return s
}

func validateOrganizationName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Organization name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Organization name cannot exceed 200 characters")
	}
	return nil
}

func validateSlug(slug string) error {
	if len(slug) < 2 || len(slug) > 64 {
		return shared.NewDomainError("INVALID_SLUG", "Slug must be between 2 and 64 characters")
	}
	if !slugPattern.MatchString(slug) {
		return shared.NewDomainError("INVALID_SLUG", "Slug may only contain lowercase letters, digits and single hyphens")
	}
	return nil
}
