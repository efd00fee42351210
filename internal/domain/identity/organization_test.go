package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrganization(t *testing.T) {
	t.Run("derives slug from name", func(t *testing.T) {
		org, err := NewOrganization("  Main Street FX Ltd. ", "")
		require.NoError(t, err)
		assert.Equal(t, "Main Street FX Ltd.", org.Name)
		assert.Equal(t, "main-street-fx-ltd", org.Slug)
		assert.Equal(t, DefaultBaseCurrency, org.BaseCurrency)
		assert.True(t, org.IsActive())

		events := org.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeOrganizationCreated, events[0].EventType())
		assert.Equal(t, org.ID, events[0].TenantID())
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewOrganization("   ", "acme")
		assert.Error(t, err)
	})

	t.Run("rejects malformed slug", func(t *testing.T) {
		_, err := NewOrganization("Acme", "acme--fx")
		assert.Error(t, err)
		_, err = NewOrganization("Acme", "a")
		assert.Error(t, err)
	})
}

func TestOrganization_LinkExternal(t *testing.T) {
	org, err := NewOrganization("Acme", "acme")
	require.NoError(t, err)

	require.NoError(t, org.LinkExternal("org_123"))
	require.NoError(t, org.LinkExternal("org_123"))
	assert.Error(t, org.LinkExternal("org_456"))
	assert.Equal(t, "org_123", org.ExternalID)
}

func TestOrganization_SetBaseCurrency(t *testing.T) {
	org, err := NewOrganization("Acme", "acme")
	require.NoError(t, err)
	version := org.Version

	require.NoError(t, org.SetBaseCurrency("cad"))
	assert.Equal(t, "CAD", org.BaseCurrency)
	assert.Equal(t, version+1, org.Version)

	assert.Error(t, org.SetBaseCurrency("CADX"))
}

func TestOrganization_Deactivate(t *testing.T) {
	org, err := NewOrganization("Acme", "acme")
	require.NoError(t, err)

	require.NoError(t, org.Deactivate())
	assert.False(t, org.IsActive())
	assert.Error(t, org.Deactivate())
	require.NoError(t, org.Activate())
	assert.True(t, org.IsActive())
}

func TestEnsureAdminRemains(t *testing.T) {
	orgID := uuid.New()
	admin := uuid.New()
	member := uuid.New()
	members := []Membership{
		{OrganizationID: orgID, UserID: admin, Role: RoleAdmin},
		{OrganizationID: orgID, UserID: member, Role: RoleMember},
	}
	demote := RoleMember
	promote := RoleAdmin

	t.Run("removing the last admin fails", func(t *testing.T) {
		assert.Error(t, EnsureAdminRemains(members, admin, nil))
	})

	t.Run("demoting the last admin fails", func(t *testing.T) {
		assert.Error(t, EnsureAdminRemains(members, admin, &demote))
	})

	t.Run("keeping admin role is fine", func(t *testing.T) {
		assert.NoError(t, EnsureAdminRemains(members, admin, &promote))
	})

	t.Run("removing a member is fine", func(t *testing.T) {
		assert.NoError(t, EnsureAdminRemains(members, member, nil))
	})

	t.Run("second admin allows demotion", func(t *testing.T) {
		withTwo := append([]Membership{{OrganizationID: orgID, UserID: uuid.New(), Role: RoleAdmin}}, members...)
		assert.NoError(t, EnsureAdminRemains(withTwo, admin, &demote))
	})
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{"org:admin", RoleAdmin, false},
		{"ORG:MEMBER", RoleMember, false},
		{"owner", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "org:"+string(tt.want), got.ProviderRole())
		})
	}
}

func TestUser_UpdateProfile(t *testing.T) {
	u, err := NewUser("user_1", "Teller@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "teller@example.com", u.Email)
	assert.Equal(t, "teller@example.com", u.FullName())

	require.NoError(t, u.UpdateProfile("teller@example.com", "Ada", "Lovelace", ""))
	assert.Equal(t, "Ada Lovelace", u.FullName())

	assert.Error(t, u.UpdateProfile("not-an-email", "", "", ""))

	_, err = NewUser("", "x@example.com")
	assert.Error(t, err)
}
