// file: model/token.go

package model

import "time"

// RefreshToken is one link of a rotation chain in the database. Only the
// SHA-256 hash of the opaque token value is stored; the raw value exists
// solely in the client's cookie.
//
// A record is never deleted on use. Rotation flips Revoked and records the
// successor's hash in ReplacedBy, so a replayed (already rotated) token can
// be recognized as a theft signal later.
type RefreshToken struct {
	ID            int           `json:"id"`
	PrincipalID   int           `json:"principal_id"`
	PrincipalKind PrincipalKind `json:"principal_kind"`
	TokenHash     string        `json:"-"` // The hash is not exposed in JSON responses.
	ExpiresAt     time.Time     `json:"expires_at"`
	Revoked       bool          `json:"revoked"`
	ReplacedBy    *string       `json:"-"` // hash of the successor token, rotation only
	CreatedAt     time.Time     `json:"created_at"`
}

// TokenPair carries a freshly minted access/refresh credential pair back to
// the handler layer, which turns it into cookies.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
