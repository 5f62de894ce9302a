package mockapi

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/incidentdesk/internal/common"
)

// TokenType distinguishes access from refresh tokens signed with one key.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims are the registered claims plus the user id, the token type and the
// access generation the token was minted in.
type Claims struct {
	jwt.RegisteredClaims
	UserID     int64     `json:"user_id"`
	TokenType  TokenType `json:"token_type"`
	Generation int64     `json:"gen,omitempty"`
}

// GenerateToken signs an HS256 token for userID. Every token carries a fresh
// jti, so two tokens minted within the same second still differ.
func GenerateToken(userID int64, typ TokenType, generation int64, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UserID:     userID,
		TokenType:  typ,
		Generation: generation,
	})

	return token.SignedString(secretKey)
}

// ParseToken validates tokenString and returns its claims. Expired tokens
// yield common.ErrTokenExpired, tokens of another type
// common.ErrWrongTokenType, anything else common.ErrInvalidToken.
func ParseToken(tokenString string, typ TokenType, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	if claims.TokenType != typ {
		return nil, common.ErrWrongTokenType
	}

	return claims, nil
}
