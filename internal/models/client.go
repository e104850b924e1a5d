package models

import "time"

// Client represents a trainer's client. The engine only ever creates and
// reads clients; everything else about client management lives outside it.
type Client struct {
	ID         int       `json:"id"`
	TrainerUID string    `json:"trainer_uid"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// FullName joins first and last name for receipts and notifications.
func (c *Client) FullName() string {
	return c.FirstName + " " + c.LastName
}

// DummyClient receives client onboarding data from a JSON request.
type DummyClient struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"required"`
}
