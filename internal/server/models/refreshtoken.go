package models

import "time"

// RefreshToken is one long-lived credential. Tokens are rotated on every
// refresh; Expires bounds how long a silent session can survive.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
