package auth

import "errors"

// Token validation failures returned by ParseJWT.
var (
	ErrTokenInvalid = errors.New("auth: token invalid")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrUnknownRole  = errors.New("auth: unknown role")
)
