package middleware

import "errors"

var (
	errMissingToken = errors.New("missing or invalid token")
	errNoUser       = errors.New("token carries no user")
)
