package domain

import "time"

// Year is a top-level container of contacts, identified by an opaque id.
// Deleting a Year cascades to its Contacts (the cascade itself is client
// CRUD, outside this engine; dangling references are caught by validation).
type Year struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
