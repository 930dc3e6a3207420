package domain

import "time"

// Event is something users can register for.
type Event struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Registration links a user to an event.
type Registration struct {
	ID        int64
	EventID   int64
	UserID    string
	Username  string
	Name      string
	Comment   string
	CreatedAt time.Time
}
