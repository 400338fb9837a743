package domain

import "time"

// User is an account known to the credential store.
// Username doubles as the display name shown next to relayed messages.
type User struct {
	ID           UserID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
