package model

import "github.com/golang-jwt/jwt/v5"

type AppClaims struct {
	PrincipalID   int           `json:"principal_id"`
	PrincipalKind PrincipalKind `json:"principal_kind"`
	jwt.RegisteredClaims
}
