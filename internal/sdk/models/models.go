// Package models defines data models for the links2code API.
package models

import "time"

// User represents an account in the system. Password always holds the
// bcrypt hash, never the plaintext, and is excluded from JSON output.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  []byte    `json:"-"`
	ImagePath *string   `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser carries the fields required to create or fully replace a user.
// ImagePath is the storage-relative object path of the profile image,
// independent of any externally visible URL prefix.
type NewUser struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Password  []byte  `json:"-"`
	ImagePath *string `json:"image,omitempty"`
}

// Link represents a stored short link.
type Link struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLink carries the fields required to create or replace a link.
type NewLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}
