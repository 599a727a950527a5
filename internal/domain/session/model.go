package session

import (
	"errors"
	"time"
)

// Role selects which dashboard a session may use.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleReception Role = "reception"
	RoleDoctor    Role = "doctor"
	RolePharmacy  Role = "pharmacy"
	RoleCity      Role = "city"
)

// Roles lists every role in menu order.
var Roles = []Role{RoleAdmin, RoleReception, RoleDoctor, RolePharmacy, RoleCity}

func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

var (
	ErrUnknownRole     = errors.New("unknown role")
	ErrSessionNotFound = errors.New("session not found")
)

// User is the staff identity behind a role.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
	Department string `json:"department,omitempty"`
}

// Session is one logged-in dashboard. Token is only populated on login.
type Session struct {
	ID        string    `json:"id"`
	User      User      `json:"user"`
	Token     string    `json:"token,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
