// Package common defines shared constants and sentinel errors used across the
// gateway and the storage node. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Session lookup errors.
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrConfigurationFatal means the gateway's own trusted-client credential
	// was rejected by the session authority.
	ErrConfigurationFatal = errors.New("trusted client credential rejected")

	// Relay token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
