// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Accounts are created either by email/password sign-up or on the first
// Google sign-in. A user record is never mutated after creation.
// PasswordHash is empty for Google-only accounts and never leaves the server.
type User struct {
	ID           string    `json:"id"                 db:"id"            bson:"_id"`
	Name         string    `json:"name"               db:"name"          bson:"name"`
	Email        string    `json:"email"              db:"email"         bson:"email"`
	PhotoURL     string    `json:"photoUrl,omitempty" db:"photo_url"     bson:"photoUrl,omitempty"`
	PasswordHash string    `json:"-"                  db:"password_hash" bson:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"          db:"created_at"    bson:"createdAt"`
}
