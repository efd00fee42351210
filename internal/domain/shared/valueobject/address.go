package valueobject

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Address is a value object representing a postal address.
// It is immutable - all operations return new Address instances.
type Address struct {
	line1      string
	line2      string
	city       string
	region     string
	postalCode string
	country    string
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithLine2 sets the second address line
func WithLine2(line2 string) AddressOption {
	return func(a *Address) {
		a.line2 = strings.TrimSpace(line2)
	}
}

// WithRegion sets the state, province or county
func WithRegion(region string) AddressOption {
	return func(a *Address) {
		a.region = strings.TrimSpace(region)
	}
}

// WithPostalCode sets the postal code for the address
func WithPostalCode(postalCode string) AddressOption {
	return func(a *Address) {
		a.postalCode = strings.TrimSpace(postalCode)
	}
}

// NewAddress creates a new Address.
// line1, city and country are required; country is an ISO 3166-1 alpha-2 code.
func NewAddress(line1, city, country string, opts ...AddressOption) (Address, error) {
	addr := Address{
		line1:   strings.TrimSpace(line1),
		city:    strings.TrimSpace(city),
		country: strings.ToUpper(strings.TrimSpace(country)),
	}
	for _, opt := range opts {
		opt(&addr)
	}

	if addr.line1 == "" {
		return Address{}, fmt.Errorf("address line 1 cannot be empty")
	}
	if len(addr.line1) > 200 || len(addr.line2) > 200 {
		return Address{}, fmt.Errorf("address lines cannot exceed 200 characters")
	}
	if addr.city == "" {
		return Address{}, fmt.Errorf("city cannot be empty")
	}
	if len(addr.city) > 100 || len(addr.region) > 100 {
		return Address{}, fmt.Errorf("city and region cannot exceed 100 characters")
	}
	if len(addr.postalCode) > 20 {
		return Address{}, fmt.Errorf("postal code cannot exceed 20 characters")
	}
	if !countryCodePattern.MatchString(addr.country) {
		return Address{}, fmt.Errorf("country must be a two-letter ISO 3166 code")
	}
	return addr, nil
}

// EmptyAddress returns an empty address (for optional address fields)
func EmptyAddress() Address {
	return Address{}
}

// Line1 returns the first address line
func (a Address) Line1() string { return a.line1 }

// Line2 returns the second address line
func (a Address) Line2() string { return a.line2 }

// City returns the city
func (a Address) City() string { return a.city }

// Region returns the state, province or county
func (a Address) Region() string { return a.region }

// PostalCode returns the postal code
func (a Address) PostalCode() string { return a.postalCode }

// Country returns the ISO country code
func (a Address) Country() string { return a.country }

// IsEmpty returns true if no required field is set
func (a Address) IsEmpty() bool {
	return a.line1 == "" && a.city == "" && a.country == ""
}

// SingleLine formats the address on one line, skipping blank parts
func (a Address) SingleLine() string {
	if a.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, 6)
	for _, p := range []string{a.line1, a.line2, a.city, a.region, a.postalCode, a.country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// String returns the single line form
func (a Address) String() string {
	return a.SingleLine()
}

// Equals returns true if both addresses are equal
func (a Address) Equals(other Address) bool {
	return a == other
}

// AddressDTO is the exported form used for JSON and persistence
type AddressDTO struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

// ToDTO converts Address to AddressDTO
func (a Address) ToDTO() AddressDTO {
	return AddressDTO{
		Line1:      a.line1,
		Line2:      a.line2,
		City:       a.city,
		Region:     a.region,
		PostalCode: a.postalCode,
		Country:    a.country,
	}
}

// AddressFromDTO rebuilds an Address, validating it unless the DTO is blank
func AddressFromDTO(d AddressDTO) (Address, error) {
	if d.Line1 == "" && d.City == "" && d.Country == "" {
		return EmptyAddress(), nil
	}
	return NewAddress(d.Line1, d.City, d.Country,
		WithLine2(d.Line2), WithRegion(d.Region), WithPostalCode(d.PostalCode))
}

// MarshalJSON implements json.Marshaler
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.ToDTO())
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Address) UnmarshalJSON(data []byte) error {
	var d AddressDTO
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	addr, err := AddressFromDTO(d)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}
