package domain

import "time"

// UserProfile maps a messenger user to their registered city.
type UserProfile struct {
	UserID    int64
	City      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
