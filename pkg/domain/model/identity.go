package model

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var ErrUnknownRole = errors.New("unknown role")

type Role int

const (
	RoleCustomer Role = iota
	RoleStaff
)

func (r Role) String() string {
	switch r {
	case RoleStaff:
		return "staff"
	default:
		return "customer"
	}
}

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "customer":
		return RoleCustomer, nil
	case "staff":
		return RoleStaff, nil
	}
	return RoleCustomer, ErrUnknownRole
}

// Identity is the authenticated caller as reported by the auth provider.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

func (i Identity) Can(required Role) bool {
	return i.Role >= required
}
