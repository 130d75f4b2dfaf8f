package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidElements     = errors.New("malformed element input")
	ErrInvalidRequirements = errors.New("malformed clause requirements")
	ErrBackendUnavailable  = errors.New("index backend unavailable")
	ErrModelUnavailable    = errors.New("classifier model artifact unavailable")
	ErrOracleTimeout       = errors.New("oracle call timed out")
	ErrOracleSchema        = errors.New("oracle response violates schema")
	ErrRunCanceled         = errors.New("review run canceled")
)
