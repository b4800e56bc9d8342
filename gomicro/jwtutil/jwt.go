package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// UserClaims represents the JWT claims for user authentication
type UserClaims struct {
	UserID        uuid.UUID   `json:"user_id"`
	Email         string      `json:"email"`
	DisplayName   string      `json:"display_name,omitempty"`
	TenantID      *uuid.UUID  `json:"tenant_id,omitempty"` // Selected or default tenant
	TenantIDs     []uuid.UUID `json:"tenant_ids,omitempty"`
	IsSystemAdmin bool        `json:"is_system_admin,omitempty"`
	jwt.RegisteredClaims
}

// HasTenant reports whether the token grants access to the tenant
func (c *UserClaims) HasTenant(tenantID uuid.UUID) bool {
	for _, id := range c.TenantIDs {
		if id == tenantID {
			return true
		}
	}
	return false
}

// TokenInput carries the identity written into a token
type TokenInput struct {
	UserID        uuid.UUID
	Email         string
	DisplayName   string
	TenantID      *uuid.UUID
	TenantIDs     []uuid.UUID
	IsSystemAdmin bool
}

// JWTUtil is a utility for JWT token operations
type JWTUtil struct {
	config *JWTConfig
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(config *JWTConfig) *JWTUtil {
	return &JWTUtil{
		config: config,
	}
}

// GenerateToken creates a signed JWT token for the identity
func (j *JWTUtil) GenerateToken(in TokenInput) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}

	now := time.Now()
	claims := UserClaims{
		UserID:        in.UserID,
		Email:         in.Email,
		DisplayName:   in.DisplayName,
		TenantID:      in.TenantID,
		TenantIDs:     in.TenantIDs,
		IsSystemAdmin: in.IsSystemAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   in.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(j.config.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// ValidateToken validates and parses the JWT token
func (j *JWTUtil) ValidateToken(tokenString string) (*UserClaims, error) {
	if j.config == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.config.SigningKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
