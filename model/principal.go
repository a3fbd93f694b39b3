package model

import "time"

// PrincipalKind identifies which table an authenticated principal lives in.
// It is a closed set; anything else is rejected at the gate.
type PrincipalKind string

const (
	KindAdmin   PrincipalKind = "admin"
	KindStudent PrincipalKind = "student"
)

// Valid reports whether the kind is one of the known variants.
func (k PrincipalKind) Valid() bool {
	return k == KindAdmin || k == KindStudent
}

// School is the admin principal. A school is its own tenant: every resource
// it owns is scoped by its own id.
type School struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // bcrypt hash, never serialized
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Student belongs to exactly one school; SchoolID is its tenant scope.
type Student struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Password     string    `json:"-"` // bcrypt hash, never serialized
	Phone        string    `json:"phone,omitempty"`
	Class        string    `json:"class,omitempty"`
	AcademicYear string    `json:"academic_year,omitempty"`
	SchoolID     int       `json:"school_id"`
	CreatedAt    time.Time `json:"created_at"`
}
