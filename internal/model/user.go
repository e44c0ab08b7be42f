package model

import "time"

// GuestUserID identifies the default single-user profile.
const GuestUserID = "guest"

// User is the owner of transactions and budgets.
type User struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Theme     string    `json:"theme"`
}

// GuestUser returns the profile created on first use.
func GuestUser(now time.Time) User {
	return User{
		ID:        GuestUserID,
		Name:      "Guest",
		Currency:  "USD",
		Theme:     "dark",
		CreatedAt: now,
	}
}
