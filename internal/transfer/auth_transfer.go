package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}
