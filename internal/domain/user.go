package domain

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleWaiter Role = "waiter"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleWaiter
}

type User struct {
	ID           int64
	Username     string
	Name         string
	Email        string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
