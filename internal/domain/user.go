package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record created once at signup. Immutable afterwards
// except for credential rotation, which is out of scope here.
type User struct {
	ID           uuid.UUID `json:"id"`
	Firstname    string    `json:"firstname"`
	Lastname     string    `json:"lastname"`
	PhoneNumber  string    `json:"phone_number"`
	Gender       string    `json:"gender"`
	Age          int       `json:"age"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// FullName is the display name snapshotted onto accounts and ledger rows.
func (u *User) FullName() string {
	return u.Firstname + " " + u.Lastname
}

// SignupRequest is the DTO for incoming registration API requests. The raw
// password is hashed at the API edge; only the hash reaches the store.
type SignupRequest struct {
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	PhoneNumber string `json:"phone_number"`
	Gender      string `json:"gender"`
	Age         int    `json:"age"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// LoginRequest is the DTO for incoming login API requests.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
