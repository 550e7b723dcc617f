package domain

import "time"

// Session is an opaque, time-limited proof of an authenticated user.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

// Profile is the public view of a user returned at login.
type Profile struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, Name: u.Name}
}
