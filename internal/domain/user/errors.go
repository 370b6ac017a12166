package user

import "errors"

var (
	ErrInvalidClaims     = errors.New("invalid token claims")
	ErrCompanyIDRequired = errors.New("company ID is required")
)
