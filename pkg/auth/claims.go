package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/streetconnect/streetconnect-backend/pkg/enums"
)

// AccessTokenClaims is the typed JWT the identity service issues to vendors
// and suppliers. This service only verifies tokens; it never mints them.
type AccessTokenClaims struct {
	UserID      uuid.UUID      `json:"user_id"`
	DisplayName string         `json:"display_name,omitempty"`
	Role        enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
