package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleSalesman  Role = "SALESMAN"
	RoleCustomer  Role = "CUSTOMER"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	Email        string    `bun:"email,unique,notnull" json:"email"`
	FullName     string    `bun:"full_name" json:"full_name"`
	PasswordHash string    `bun:"password_hash" json:"-"`
	Role         Role      `bun:"role,notnull" json:"role"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsStaff covers every role allowed to check tickets in at the door.
func (u *User) IsStaff() bool {
	if u == nil {
		return false
	}
	switch u.Role {
	case RoleAdmin, RoleModerator, RoleSalesman:
		return true
	}
	return false
}
