package common

import "errors"

var (
	// Token lifecycle errors reported by the mock backend's token validation.
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenType = errors.New("wrong token type")
)
