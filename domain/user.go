package domain

import "time"

const UnknownUserName = "Unknown User"

// User is created by the credential service the first time an email is
// verified, and completed later through the profile endpoint.
type User struct {
	ID        UserID
	Name      string
	Email     string
	Phone     string
	Photo     *string
	CreatedAt time.Time
}

// DisplayName is the name used to attribute events, falling back when the
// profile has not been completed yet.
func (u User) DisplayName() string {
	if u.Name == "" {
		return UnknownUserName
	}
	return u.Name
}

// IsRegistered reports whether the profile has been completed.
func (u User) IsRegistered() bool {
	return u.Name != "" && u.Phone != ""
}
