package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller every scheduling operation runs on behalf of.
type Actor struct {
	UserID string
	Role   UserRole
	Email  string
}

// ActorFromClaims derives an Actor from verified token claims.
func ActorFromClaims(claims *JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role, Email: claims.Email}
}

// IsAdmin reports whether the actor may act on other users' calendars.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
