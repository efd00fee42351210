// Package webhook verifies signed event deliveries from the identity provider.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const secretPrefix = "whsec_"

var (
	ErrMissingHeaders    = errors.New("missing webhook headers")
	ErrInvalidTimestamp  = errors.New("invalid webhook timestamp")
	ErrTimestampTooOld   = errors.New("webhook timestamp too old")
	ErrTimestampTooNew   = errors.New("webhook timestamp too new")
	ErrNoMatchingSig     = errors.New("no matching webhook signature")
	ErrInvalidSecret     = errors.New("invalid webhook secret")
	ErrMalformedEnvelope = errors.New("malformed webhook envelope")
)

// Event is a verified delivery
type Event struct {
	MessageID string
	Timestamp time.Time
	Type      string
	Data      gjson.Result
	Raw       []byte
}

// Verifier checks svix-style signatures: HMAC-SHA256 over "id.timestamp.body"
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier decodes a whsec_ secret
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	encoded := strings.TrimPrefix(secret, secretPrefix)
	if encoded == "" {
		return nil, ErrInvalidSecret
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &Verifier{key: key, tolerance: tolerance, now: time.Now}, nil
}

// Verify authenticates payload against the delivery headers and decodes the envelope.
// Both webhook-* and svix-* header names are accepted.
func (v *Verifier) Verify(payload []byte, headers http.Header) (*Event, error) {
	id := firstHeader(headers, "webhook-id", "svix-id")
	ts := firstHeader(headers, "webhook-timestamp", "svix-timestamp")
	sigs := firstHeader(headers, "webhook-signature", "svix-signature")
	if id == "" || ts == "" || sigs == "" {
		return nil, ErrMissingHeaders
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, ErrInvalidTimestamp
	}
	sent := time.Unix(sec, 0)
	now := v.now()
	if now.Sub(sent) > v.tolerance {
		return nil, ErrTimestampTooOld
	}
	if sent.Sub(now) > v.tolerance {
		return nil, ErrTimestampTooNew
	}

	expected := v.Sign(id, sent, payload)
	matched := false
	for _, candidate := range strings.Fields(sigs) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, ErrNoMatchingSig
	}

	if !gjson.ValidBytes(payload) {
		return nil, ErrMalformedEnvelope
	}
	doc := gjson.ParseBytes(payload)
	eventType := doc.Get("type").String()
	if eventType == "" {
		return nil, ErrMalformedEnvelope
	}

	return &Event{
		MessageID: id,
		Timestamp: sent,
		Type:      eventType,
		Data:      doc.Get("data"),
		Raw:       payload,
	}, nil
}

// Sign returns the base64 v1 signature for a message, without the "v1," prefix
func (v *Verifier) Sign(id string, at time.Time, payload []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(strconv.FormatInt(at.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func firstHeader(h http.Header, names ...string) string {
	for _, n := range names {
		if v := h.Get(n); v != "" {
			return v
		}
	}
	return ""
}
