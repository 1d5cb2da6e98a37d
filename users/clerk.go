package users

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"eventtts/models"
)

const webhookTolerance = 5 * time.Minute

var ErrBadSignature = errors.New("bad webhook signature")

// WebhookVerifier checks svix-signed deliveries from Clerk.
type WebhookVerifier struct {
	key []byte
	now func() time.Time
}

// NewWebhookVerifier takes the dashboard secret, with or without its
// "whsec_" prefix.
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return nil, fmt.Errorf("decode clerk webhook secret: %w", err)
	}
	return &WebhookVerifier{key: key, now: time.Now}, nil
}

func (v *WebhookVerifier) sign(id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify accepts the delivery if any v1 signature in the header matches and
// the timestamp is within tolerance.
func (v *WebhookVerifier) Verify(h http.Header, body []byte) error {
	id := h.Get("svix-id")
	ts := h.Get("svix-timestamp")
	sigs := h.Get("svix-signature")
	if id == "" || ts == "" || sigs == "" {
		return fmt.Errorf("%w: missing svix headers", ErrBadSignature)
	}
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrBadSignature)
	}
	if d := v.now().Sub(time.Unix(secs, 0)); d > webhookTolerance || d < -webhookTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrBadSignature)
	}

	want := v.sign(id, ts, body)
	for _, sig := range strings.Fields(sigs) {
		version, value, ok := strings.Cut(sig, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(value), []byte(want)) {
			return nil
		}
	}
	return ErrBadSignature
}

type clerkEvent struct {
	Type string    `json:"type"`
	Data clerkUser `json:"data"`
}

type clerkUser struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ImageURL       string `json:"image_url"`
	PrimaryEmailID string `json:"primary_email_address_id"`
	EmailAddresses []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (c clerkUser) email() string {
	for _, e := range c.EmailAddresses {
		if e.ID == c.PrimaryEmailID {
			return e.EmailAddress
		}
	}
	if len(c.EmailAddresses) > 0 {
		return c.EmailAddresses[0].EmailAddress
	}
	return ""
}

func (c clerkUser) toUser() *models.User {
	return &models.User{
		ClerkID:   c.ID,
		Email:     c.email(),
		Username:  c.Username,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Photo:     c.ImageURL,
	}
}

func (c clerkUser) toUpdate() models.UserUpdate {
	email := c.email()
	return models.UserUpdate{
		Username:  &c.Username,
		FirstName: &c.FirstName,
		LastName:  &c.LastName,
		Photo:     &c.ImageURL,
		Email:     &email,
	}
}

func parseClerkEvent(body []byte) (*clerkEvent, error) {
	var ev clerkEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if ev.Data.ID == "" {
		return nil, fmt.Errorf("%w: clerk event without user id", models.ErrValidation)
	}
	return &ev, nil
}
