// Package model defines the data structures used throughout the application.
package model

import "time"

// Provider identifies the OAuth provider a user last signed in with.
//
// The values are stored as-is in the database and serialized as-is in API
// responses, so they are spelled the way the product talks about them
// ("Google", "Github") rather than lowercased.
type Provider string

const (
	ProviderGoogle Provider = "Google"
	ProviderGithub Provider = "Github"
)

// User represents a registered user account.
//
// Identity is keyed by email, not by the OAuth provider's account ID: a
// person who signs in with Google today and GitHub tomorrow keeps a single
// account, with Provider tracking whichever they used last. That makes
// email the UNIQUE column in the users table and the upsert key on every
// sign-in.
//
// WHY Name string (not *string)?
// Providers may withhold the display name. We use the empty string as the
// zero value rather than a nullable pointer — simpler to work with and
// safe to display.
type User struct {
	ID        string    `json:"id"        db:"id"`
	Email     string    `json:"email"     db:"email"`
	Name      string    `json:"name"      db:"name"`
	Provider  Provider  `json:"provider"  db:"provider"` // last provider used to sign in
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
