package partner

import (
	"testing"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCustomer(t *testing.T) *Customer {
	t.Helper()
	c, err := NewCustomer(uuid.New(), "Grace", "Hopper")
	require.NoError(t, err)
	return c
}

func datePtr(t time.Time) *time.Time { return &t }

func TestNewCustomer(t *testing.T) {
	t.Run("starts pending with low risk", func(t *testing.T) {
		c := newTestCustomer(t)
		assert.Equal(t, KYCStatusPending, c.KYCStatus)
		assert.Equal(t, RiskLevelLow, c.RiskLevel)
		assert.Equal(t, "Grace Hopper", c.FullName())
		require.Len(t, c.GetDomainEvents(), 1)
	})

	t.Run("requires both names", func(t *testing.T) {
		_, err := NewCustomer(uuid.New(), "Grace", " ")
		assert.Error(t, err)
	})
}

func TestCustomer_SetContact(t *testing.T) {
	c := newTestCustomer(t)

	require.NoError(t, c.SetContact(" Grace@Example.COM ", "+1 (555) 010-2000"))
	assert.Equal(t, "grace@example.com", c.Email)

	assert.Error(t, c.SetContact("nope", ""))
	assert.Error(t, c.SetContact("", "call me"))
	require.NoError(t, c.SetContact("", ""))
	assert.Empty(t, c.Email)
}

func TestCustomer_SetPersonalDetails(t *testing.T) {
	c := newTestCustomer(t)

	require.NoError(t, c.SetPersonalDetails(datePtr(time.Date(1906, 12, 9, 0, 0, 0, 0, time.UTC)), "us", "Admiral"))
	assert.Equal(t, "US", c.Nationality)

	assert.Error(t, c.SetPersonalDetails(datePtr(time.Now().Add(48*time.Hour)), "", ""))
	assert.Error(t, c.SetPersonalDetails(nil, "USA", ""))
}

func TestCustomer_SetAddress(t *testing.T) {
	c := newTestCustomer(t)
	addr, err := valueobject.NewAddress("1 Main St", "Arlington", "US", valueobject.WithRegion("VA"))
	require.NoError(t, err)

	c.SetAddress(addr)
	assert.Equal(t, "VA", c.Address.Region())
}

func TestCustomer_Identifications(t *testing.T) {
	c := newTestCustomer(t)
	expiry := datePtr(time.Now().AddDate(5, 0, 0))

	passport, err := c.AddIdentification(IdentificationPassport, "x123 4567", "us", nil, expiry)
	require.NoError(t, err)
	assert.Equal(t, "X1234567", passport.Number)
	assert.True(t, passport.Primary)
	assert.Equal(t, "4567", passport.Last4())
	assert.Equal(t, "****4567", passport.MaskedNumber())

	license, err := c.AddIdentification(IdentificationDriversLicense, "D9999", "US", nil, nil)
	require.NoError(t, err)
	assert.False(t, license.Primary)

	t.Run("duplicate rejected", func(t *testing.T) {
		_, err := c.AddIdentification(IdentificationPassport, "X1234567", "US", nil, nil)
		assert.Error(t, err)
	})

	t.Run("expiry must follow issue", func(t *testing.T) {
		issued := time.Now()
		_, err := c.AddIdentification(IdentificationNationalID, "N0001", "US", &issued, datePtr(issued.AddDate(-1, 0, 0)))
		assert.Error(t, err)
	})

	t.Run("set primary", func(t *testing.T) {
		require.NoError(t, c.SetPrimaryIdentification(license.ID))
		assert.Equal(t, license.ID, c.PrimaryIdentification().ID)
	})

	t.Run("removing primary promotes next", func(t *testing.T) {
		require.NoError(t, c.RemoveIdentification(license.ID))
		require.Len(t, c.Identifications, 1)
		assert.True(t, c.Identifications[0].Primary)
	})

	t.Run("attach document", func(t *testing.T) {
		require.NoError(t, c.AttachDocument(passport.ID, "kyc/doc.pdf"))
		ident, err := c.Identification(passport.ID)
		require.NoError(t, err)
		assert.Equal(t, "kyc/doc.pdf", ident.DocumentKey)
		assert.Error(t, c.AttachDocument(uuid.New(), "x"))
	})
}

func TestCustomer_KYCLifecycle(t *testing.T) {
	verifier := uuid.New()
	now := time.Now()

	t.Run("verification requires valid identification", func(t *testing.T) {
		c := newTestCustomer(t)
		assert.Error(t, c.Verify(RiskLevelLow, verifier, now))

		_, err := c.AddIdentification(IdentificationPassport, "P0000001", "GB", nil, datePtr(now.AddDate(0, 0, -1)))
		require.NoError(t, err)
		assert.Error(t, c.Verify(RiskLevelLow, verifier, now), "expired document does not count")
	})

	t.Run("verify then reject", func(t *testing.T) {
		c := newTestCustomer(t)
		_, err := c.AddIdentification(IdentificationPassport, "P0000002", "GB", nil, datePtr(now.AddDate(1, 0, 0)))
		require.NoError(t, err)
		c.ClearDomainEvents()

		require.NoError(t, c.Verify(RiskLevelMedium, verifier, now))
		assert.True(t, c.IsVerified())
		assert.Equal(t, RiskLevelMedium, c.RiskLevel)
		assert.Equal(t, verifier, *c.VerifiedBy)
		assert.Error(t, c.Verify(RiskLevelLow, verifier, now))
		assert.NoError(t, c.CanTrade(true))

		assert.Error(t, c.Reject(" "))
		require.NoError(t, c.Reject("sanctions hit"))
		assert.Equal(t, KYCStatusRejected, c.KYCStatus)
		assert.Nil(t, c.VerifiedAt)
		assert.Error(t, c.CanTrade(false))

		events := c.GetDomainEvents()
		require.Len(t, events, 2)
		changed := events[1].(*CustomerKYCStatusChangedEvent)
		assert.Equal(t, KYCStatusVerified, changed.OldStatus)
		assert.Equal(t, KYCStatusRejected, changed.NewStatus)
	})

	t.Run("rejected customer can be verified again", func(t *testing.T) {
		c := newTestCustomer(t)
		_, err := c.AddIdentification(IdentificationNationalID, "ID778899", "FR", nil, nil)
		require.NoError(t, err)
		require.NoError(t, c.Reject("blurry document"))
		require.NoError(t, c.Verify(RiskLevelHigh, verifier, now))
		assert.Empty(t, c.RejectionReason)
	})

	t.Run("removing last valid document reverts to pending", func(t *testing.T) {
		c := newTestCustomer(t)
		ident, err := c.AddIdentification(IdentificationNationalID, "ID112233", "FR", nil, nil)
		require.NoError(t, err)
		require.NoError(t, c.Verify(RiskLevelLow, verifier, now))

		require.NoError(t, c.RemoveIdentification(ident.ID))
		assert.Equal(t, KYCStatusPending, c.KYCStatus)
	})

	t.Run("pending customer trades only below threshold", func(t *testing.T) {
		c := newTestCustomer(t)
		assert.NoError(t, c.CanTrade(false))
		assert.Error(t, c.CanTrade(true))
	})
}
