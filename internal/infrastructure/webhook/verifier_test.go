package webhook

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("super-secret-signing-key"))

const testPayload = `{"type":"organization.created","object":"event","data":{"id":"org_1","name":"Acme","slug":"acme"}}`

func signedHeaders(t *testing.T, v *Verifier, id string, at time.Time, payload string, prefix string) http.Header {
	t.Helper()
	h := http.Header{}
	h.Set(prefix+"-id", id)
	h.Set(prefix+"-timestamp", strconv.FormatInt(at.Unix(), 10))
	h.Set(prefix+"-signature", "v1,"+v.Sign(id, at, []byte(payload)))
	return h
}

func TestNewVerifier(t *testing.T) {
	_, err := NewVerifier("whsec_", 0)
	assert.ErrorIs(t, err, ErrInvalidSecret)

	_, err = NewVerifier("whsec_%%%", 0)
	assert.ErrorIs(t, err, ErrInvalidSecret)

	v, err := NewVerifier(testSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, v.tolerance)
}

func TestVerifier_Verify(t *testing.T) {
	v, err := NewVerifier(testSecret, 5*time.Minute)
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	v.now = func() time.Time { return now }

	t.Run("valid webhook headers", func(t *testing.T) {
		ev, err := v.Verify([]byte(testPayload), signedHeaders(t, v, "msg_1", now, testPayload, "webhook"))
		require.NoError(t, err)
		assert.Equal(t, "msg_1", ev.MessageID)
		assert.Equal(t, "organization.created", ev.Type)
		assert.Equal(t, "acme", ev.Data.Get("slug").String())
	})

	t.Run("valid svix headers", func(t *testing.T) {
		_, err := v.Verify([]byte(testPayload), signedHeaders(t, v, "msg_2", now, testPayload, "svix"))
		assert.NoError(t, err)
	})

	t.Run("any matching signature is accepted", func(t *testing.T) {
		h := signedHeaders(t, v, "msg_3", now, testPayload, "webhook")
		h.Set("webhook-signature", "v1,bm9wZQ== v2,whatever "+h.Get("webhook-signature"))
		_, err := v.Verify([]byte(testPayload), h)
		assert.NoError(t, err)
	})

	t.Run("tampered body", func(t *testing.T) {
		h := signedHeaders(t, v, "msg_4", now, testPayload, "webhook")
		_, err := v.Verify([]byte(`{"type":"organization.deleted","data":{}}`), h)
		assert.ErrorIs(t, err, ErrNoMatchingSig)
	})

	t.Run("missing headers", func(t *testing.T) {
		_, err := v.Verify([]byte(testPayload), http.Header{})
		assert.ErrorIs(t, err, ErrMissingHeaders)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		h := signedHeaders(t, v, "msg_5", now, testPayload, "webhook")
		h.Set("webhook-timestamp", "yesterday")
		_, err := v.Verify([]byte(testPayload), h)
		assert.ErrorIs(t, err, ErrInvalidTimestamp)
	})

	t.Run("outside tolerance", func(t *testing.T) {
		old := now.Add(-6 * time.Minute)
		_, err := v.Verify([]byte(testPayload), signedHeaders(t, v, "msg_6", old, testPayload, "webhook"))
		assert.ErrorIs(t, err, ErrTimestampTooOld)

		future := now.Add(6 * time.Minute)
		_, err = v.Verify([]byte(testPayload), signedHeaders(t, v, "msg_7", future, testPayload, "webhook"))
		assert.ErrorIs(t, err, ErrTimestampTooNew)
	})

	t.Run("envelope without type", func(t *testing.T) {
		body := `{"data":{}}`
		_, err := v.Verify([]byte(body), signedHeaders(t, v, "msg_8", now, body, "webhook"))
		assert.ErrorIs(t, err, ErrMalformedEnvelope)
	})
}
