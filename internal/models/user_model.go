package models

import "time"

// Roles a user profile can carry.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a storefront profile stored under users/{uid}.
type User struct {
	UID         string    `json:"uid"` // Firebase Auth UID, also the remote key
	DisplayName string    `json:"displayName,omitempty"`
	Email       string    `json:"email,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (u User) RemoteKey() string { return u.UID }

func (u User) WithRemoteKey(key string) User {
	u.UID = key
	return u
}

// IsAdmin reports whether the profile unlocks the back-office.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
