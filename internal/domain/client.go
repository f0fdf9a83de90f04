package domain

import (
	"time"

	"github.com/google/uuid"
)

// Client is a borrower. Route, group and town drive collection rounds.
type Client struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Email     string    `json:"email" db:"email"`
	Route     string    `json:"route" db:"route"`
	GroupName string    `json:"group_name" db:"group_name"`
	Town      string    `json:"town" db:"town"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CreateClientRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Email     string `json:"email" validate:"omitempty,email"`
	Route     string `json:"route" validate:"omitempty,max=64"`
	GroupName string `json:"group_name" validate:"omitempty,max=64"`
	Town      string `json:"town" validate:"omitempty,max=64"`
}
