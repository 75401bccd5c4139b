// Package common defines shared constants and sentinel errors used across
// the storage service layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound         = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Storage and archive validation errors.
	ErrInvalidPath       = errors.New("invalid path")
	ErrAccessDenied      = errors.New("access denied")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrStorageIO         = errors.New("storage i/o error")

	// Cache errors. ErrCacheMiss never leaves the cache layer.
	ErrCacheMiss = errors.New("cache miss")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Token lifecycle errors.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
