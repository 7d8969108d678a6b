package domain

import "errors"

var (
	ErrAccountDisabled = errors.New("account disabled")
	ErrTokenRefresh    = errors.New("token refresh failed")
	ErrNoCredentials   = errors.New("no credentials loaded")
	ErrProxyMismatch   = errors.New("proxy count does not match credential count")
)
