package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrSessionNotFound     = errors.New("session_not_found")
	ErrAssetNotFound       = errors.New("asset_not_found")
	ErrOrderNotFound       = errors.New("order_not_found")
	ErrOrderNotCancellable = errors.New("order_not_cancellable")
	ErrDuplicateTicker     = errors.New("duplicate_ticker")
	ErrNoAssets            = errors.New("no_assets")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
