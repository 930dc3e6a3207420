package domain

import "time"

// User represents a registered account. Admin users may manage events.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Name         string
	Admin        bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
