package errors

import "errors"

var (
	ErrUnauthenticated  = errors.New("no valid credential provided")
	ErrUnauthorized     = errors.New("not authorized to access this data")
	ErrValidationFailed = errors.New("validation failed")
	ErrNotFound         = errors.New("user data not found")
	ErrAlreadyExists    = errors.New("document already exists")
	ErrDeviceForbidden  = errors.New("device is forbidden")
	ErrUpstream         = errors.New("upstream provider failure")
	ErrInternal         = errors.New("internal error")
)
