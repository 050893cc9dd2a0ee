package domain

import (
	"strings"
	"time"
)

// MaxCommentsLength bounds the free-text comments field on a Contact.
const MaxCommentsLength = 1000

// Contact belongs to exactly one Year and one tenant.
//
// DeliveredAt must be non-nil iff Delivered is true; the validation engine
// re-derives violations of that invariant from live data rather than
// trusting writers.
type Contact struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	YearID      string     `json:"year_id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Enterprise  string     `json:"enterprise"`
	Comments    string     `json:"comments"`
	Delivered   bool       `json:"delivered"`
	DeliveredAt *time.Time `json:"delivered_at"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// DuplicateKey builds the case-insensitive composite key used for
// duplicate-contact detection within a Year.
func (c *Contact) DuplicateKey() string {
	return normalizeKeyPart(c.FirstName) + "|" + normalizeKeyPart(c.LastName) + "|" + normalizeKeyPart(c.Enterprise)
}

func normalizeKeyPart(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
