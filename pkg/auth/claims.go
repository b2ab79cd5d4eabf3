package auth

import (
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
// Premium fields are copied from the user's custom credential attributes at
// mint time; they refresh on the next token rotation, not in real time.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Role       enums.MemberRole
	Premium    bool
	PremiumExp *int64
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID        `json:"user_id"`
	Role       enums.MemberRole `json:"role"`
	Premium    bool             `json:"premium,omitempty"`
	PremiumExp *int64           `json:"premium_exp,omitempty"`
	jwt.RegisteredClaims
}
