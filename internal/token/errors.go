package token

import "errors"

var (
	// ErrTokenGeneration indicates token generation failed
	ErrTokenGeneration = errors.New("failed to generate token")

	// ErrInvalidToken indicates the token is malformed, carries a bad
	// signature or fails structural checks
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken indicates the token has a valid signature but is past exp
	ErrExpiredToken = errors.New("token expired")

	// ErrInvalidKey indicates a signing or verification key could not be loaded
	ErrInvalidKey = errors.New("invalid key")
)
