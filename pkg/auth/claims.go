package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	CustomerID uuid.UUID
	// Privileged marks staff tokens allowed to run operator endpoints:
	// manual stock movements, blackouts and cache recomputes.
	Privileged bool
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Privileged bool      `json:"privileged,omitempty"`
	jwt.RegisteredClaims
}
