package domain

import "time"

// Preferences is the single per-tenant settings document. It is created at
// bootstrap and never deleted while the tenant exists. SelectedYearID may
// reference a Year that no longer exists; that state is self-healing on the
// next selection and is reported as a warning, not an error.
type Preferences struct {
	UserID         string     `json:"user_id"`
	SelectedYearID *string    `json:"selected_year_id"`
	CreatedAt      *time.Time `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

