package services

import "errors"

// Authorization Code Grant errors (RFC 6749 §4.1.2.1, §5.2)
var (
	ErrInvalidClient           = errors.New("invalid client")
	ErrUnauthorizedClient      = errors.New("client not allowed to use this grant type")
	ErrInvalidRedirectURI      = errors.New("invalid redirect_uri")
	ErrUnsupportedResponseType = errors.New("unsupported response_type")
	ErrInvalidScope            = errors.New("invalid scope")
	ErrInvalidGrant            = errors.New("invalid grant")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrUnsupportedGrantType    = errors.New("unsupported grant_type")
	ErrAccessDenied            = errors.New("the resource owner denied the request")
)

// Resource server errors
var (
	ErrRevokedToken = errors.New("token revoked")
	ErrMissingToken = errors.New("missing bearer token")
)
