// file: repository/token_repository.go

package repository

import (
	"database/sql"
	"go-school-api/logger"
	"go-school-api/model"
	"time"

	"github.com/sirupsen/logrus"
)

// ITokenRepository defines the contract for refresh token database operations.
//
// Mutations that take part in a rotation run inside the caller's transaction
// so that revoking a record and inserting its successor commit or roll back
// as one unit.
type ITokenRepository interface {
	Create(tx *sql.Tx, token *model.RefreshToken) error
	GetByTokenHash(tokenHash string) (*model.RefreshToken, error)
	GetByTokenHashForUpdate(tx *sql.Tx, tokenHash string) (*model.RefreshToken, error)
	Revoke(tx *sql.Tx, id int, replacedBy *string) error
	RevokeAllForPrincipal(tx *sql.Tx, principalID int, kind model.PrincipalKind) error
	PurgeStaleBefore(cutoff time.Time) (int64, error)
}

// TokenRepository implements ITokenRepository.
type TokenRepository struct {
	DB *sql.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

const tokenColumns = `id, principal_id, principal_kind, token_hash, expires_at, revoked, replaced_by, created_at`

// Create inserts a new refresh token record inside the given transaction.
func (r *TokenRepository) Create(tx *sql.Tx, token *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"principal_id":   token.PrincipalID,
		"principal_kind": token.PrincipalKind,
		"expires_at":     token.ExpiresAt,
	})
	log.Info("Executing query to create a new refresh token")

	query := `INSERT INTO refresh_tokens (principal_id, principal_kind, token_hash, expires_at)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := tx.QueryRow(query, token.PrincipalID, token.PrincipalKind, token.TokenHash, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create refresh token query")
		return err
	}
	return nil
}

// GetByTokenHash retrieves a refresh token by its hashed value.
func (r *TokenRepository) GetByTokenHash(tokenHash string) (*model.RefreshToken, error) {
	token := &model.RefreshToken{}
	query := `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	err := r.DB.QueryRow(query, tokenHash).Scan(
		&token.ID, &token.PrincipalID, &token.PrincipalKind, &token.TokenHash,
		&token.ExpiresAt, &token.Revoked, &token.ReplacedBy, &token.CreatedAt,
	)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).Error("Failed to execute get refresh token by hash query")
		}
		return nil, err // Return sql.ErrNoRows if not found
	}
	return token, nil
}

// GetByTokenHashForUpdate retrieves a refresh token inside the given
// transaction with a row lock, so two concurrent refresh calls presenting
// the same token are serialized and the loser observes the revoked state.
func (r *TokenRepository) GetByTokenHashForUpdate(tx *sql.Tx, tokenHash string) (*model.RefreshToken, error) {
	token := &model.RefreshToken{}
	query := `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`
	err := tx.QueryRow(query, tokenHash).Scan(
		&token.ID, &token.PrincipalID, &token.PrincipalKind, &token.TokenHash,
		&token.ExpiresAt, &token.Revoked, &token.ReplacedBy, &token.CreatedAt,
	)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).Error("Failed to execute get refresh token for update query")
		}
		return nil, err
	}
	return token, nil
}

// Revoke marks a single record as revoked. replacedBy is set only on
// rotation; an explicit logout passes nil and COALESCE keeps any value a
// prior rotation already wrote. Revoking an already-revoked record is a no-op.
func (r *TokenRepository) Revoke(tx *sql.Tx, id int, replacedBy *string) error {
	log := logger.Log.WithField("token_id", id)
	log.Info("Executing query to revoke refresh token")

	query := `UPDATE refresh_tokens SET revoked = TRUE, replaced_by = COALESCE($2, replaced_by) WHERE id = $1`
	_, err := tx.Exec(query, id, replacedBy)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke refresh token query")
		return err
	}
	return nil
}

// RevokeAllForPrincipal bulk-revokes every live refresh token of a principal.
// Used by logout-all, password change and the token-reuse theft response.
// replaced_by is left untouched: these revocations are not rotations.
func (r *TokenRepository) RevokeAllForPrincipal(tx *sql.Tx, principalID int, kind model.PrincipalKind) error {
	log := logger.Log.WithFields(logrus.Fields{
		"principal_id":   principalID,
		"principal_kind": kind,
	})
	log.Info("Executing query to revoke all refresh tokens for a principal")

	query := `UPDATE refresh_tokens SET revoked = TRUE WHERE principal_id = $1 AND principal_kind = $2 AND revoked = FALSE`
	_, err := tx.Exec(query, principalID, kind)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke all refresh tokens query")
		return err
	}
	return nil
}

// PurgeStaleBefore physically deletes records that expired before the cutoff.
// Revoked records are kept until they age out too, so replay attempts inside
// the retention window still hit the theft response.
func (r *TokenRepository) PurgeStaleBefore(cutoff time.Time) (int64, error) {
	log := logger.Log.WithField("cutoff", cutoff)
	log.Info("Executing query to purge stale refresh tokens")

	query := `DELETE FROM refresh_tokens WHERE expires_at < $1`
	res, err := r.DB.Exec(query, cutoff)
	if err != nil {
		log.WithError(err).Error("Failed to execute purge stale refresh tokens query")
		return 0, err
	}
	return res.RowsAffected()
}
