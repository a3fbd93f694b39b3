// file: service/token_service.go

package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"go-school-api/config"
	"go-school-api/logger"
	"go-school-api/model"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidCredential covers structurally broken or badly signed tokens.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrExpiredCredential is kept distinct so logs and metrics can tell an
	// expired token from a forged one; callers map both to 401.
	ErrExpiredCredential = errors.New("expired credential")
)

// TokenService is the stateless credential signer: it mints and verifies
// access JWTs and generates opaque refresh token values.
type TokenService struct{}

func NewTokenService() *TokenService {
	return &TokenService{}
}

func getJwtKey() []byte {
	return []byte(config.AppConfig.JWT.SecretKey)
}

func accessTokenTTL() time.Duration {
	return time.Duration(config.AppConfig.JWT.AccessTokenTTLMinutes) * time.Minute
}

func refreshTokenTTL() time.Duration {
	return time.Duration(config.AppConfig.JWT.RefreshTokenTTLHours) * time.Hour
}

// GenerateAccessToken signs a short-lived JWT for the principal.
func (s *TokenService) GenerateAccessToken(principalID int, kind model.PrincipalKind) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(accessTokenTTL())

	claims := &model.AppClaims{
		PrincipalID:   principalID,
		PrincipalKind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(getJwtKey())
	if err != nil {
		logger.Log.WithError(err).WithField("principal_id", principalID).Error("Failed to sign JWT")
		return "", time.Time{}, fmt.Errorf("failed to sign token string: %w", err)
	}

	return tokenString, expiresAt, nil
}

// GenerateRefreshToken returns a fresh opaque refresh token value. 32 bytes
// from crypto/rand make the value infeasible to guess and collisions across
// calls practically impossible.
func (s *TokenService) GenerateRefreshToken() (string, time.Time, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		logger.Log.WithError(err).Error("Failed to generate refresh token entropy")
		return "", time.Time{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), time.Now().Add(refreshTokenTTL()), nil
}

// GeneratePair mints a matching access/refresh credential pair.
func (s *TokenService) GeneratePair(principalID int, kind model.PrincipalKind) (*model.TokenPair, error) {
	accessToken, accessExpiresAt, err := s.GenerateAccessToken(principalID, kind)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExpiresAt, err := s.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	return &model.TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// VerifyAccessToken parses and validates an access JWT and returns its claims.
// Returns ErrExpiredCredential for tokens past their exp claim and
// ErrInvalidCredential for anything malformed or badly signed.
func (s *TokenService) VerifyAccessToken(tokenString string) (*model.AppClaims, error) {
	claims := &model.AppClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return getJwtKey(), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCredential
		}
		return nil, ErrInvalidCredential
	}
	if !token.Valid || !claims.PrincipalKind.Valid() {
		return nil, ErrInvalidCredential
	}

	return claims, nil
}

// HashRefreshToken maps a raw refresh token value to the digest stored in the
// database. Lookups compare digests, so a leaked table never yields usable
// token values.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
