package domain

import (
	"strings"
	"time"
)

// Project is a trip: it owns activities, day annotations, POIs and shares.
type Project struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Travelers   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission is the level granted by a share.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
)

// Valid reports whether p is a known permission.
func (p Permission) Valid() bool {
	return p == PermissionRead || p == PermissionWrite
}

// Share grants a user, identified by email, access to a project.
type Share struct {
	ID         string
	ProjectID  string
	Email      string
	Permission Permission
	CreatedAt  time.Time
}

// Access is the effective access level of a principal on a project.
type Access int

const (
	AccessNone Access = iota
	AccessRead
	AccessWrite
	AccessOwner
)

// CanRead reports whether a can read the project.
func (a Access) CanRead() bool { return a >= AccessRead }

// CanWrite reports whether a can modify the project content.
func (a Access) CanWrite() bool { return a >= AccessWrite }

func (a Access) String() string {
	switch a {
	case AccessOwner:
		return "owner"
	case AccessWrite:
		return string(PermissionWrite)
	case AccessRead:
		return string(PermissionRead)
	default:
		return "none"
	}
}

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Email  string
}

// NormalizeEmail lower-cases and trims an email address for share lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ProjectInput carries the editable fields of a project.
type ProjectInput struct {
	Name        string
	Description string
	Travelers   []string
}

// ProjectView pairs a project with the caller's access.
type ProjectView struct {
	Project
	Access Access
}
