package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrAuthCodeAlreadyUsed is returned by MarkAuthorizationCodeUsed when the
	// code was already consumed by a concurrent request (0 rows updated).
	ErrAuthCodeAlreadyUsed = errors.New("authorization code already used")

	// ErrTokenAlreadyRevoked is returned by RotateRefreshToken when the
	// refresh token was revoked or rotated by a concurrent request.
	ErrTokenAlreadyRevoked = errors.New("token already revoked")

	// ErrStorageUnavailable is returned when the database cannot be reached
	// or does not answer within the storage timeout.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
