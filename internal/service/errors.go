package service

import (
	"errors"

	"github.com/Skotchmaster/vidstream/internal/tokens"
)

var (
	// ErrValidation - missing or malformed input, maps to 400.
	ErrValidation = errors.New("missing or malformed input")
	// ErrNotFound - no matching identity, maps to 404.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidCredentials - wrong password or stale/absent refresh token, 401.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrConflict - duplicate username or email, maps to 409.
	ErrConflict = errors.New("user already exists")
	// ErrInvalidToken - signature mismatch or expiry elapsed, maps to 401.
	ErrInvalidToken = tokens.ErrInvalidToken
)
