package user

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRequest registers a tracked identity. ID may be supplied by the
// caller so devices can be provisioned with a known user id.
type CreateRequest struct {
	ID    string `json:"id" validate:"omitempty,max=64"`
	Email string `json:"email" validate:"omitempty,email"`
	Name  string `json:"name" validate:"required,max=200"`
}
