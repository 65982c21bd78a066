package models

// Participant is an entry in a user's participant directory.
// DisplayName is not guaranteed unique; ID is the identity key.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// User is a registered account. Every user is also a Participant in their own
// directory and in the directories of their friends.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// DisplayName is the name shown to friends and matched against split requests.
	DisplayName string

	// Email is the user's email address (unique).
	Email string

	// CreatedAt is the Unix timestamp when the user was created.
	CreatedAt int64
}

// Participant returns the directory view of the user.
func (u *User) Participant() Participant {
	return Participant{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email}
}
