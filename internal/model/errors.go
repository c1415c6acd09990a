package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the sync failure taxonomy.
// Use errors.Is() to check against these.
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrItemNotFound   = errors.New("item not found")
	ErrLineNotFound   = errors.New("line not found")
	ErrUnreachable    = errors.New("backend unreachable")
	ErrStaleLine      = errors.New("stale cart line")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotSupported   = errors.New("not supported")
	ErrSessionChanged = errors.New("session changed")
)

// SyncError is the structured failure returned by every mutation.
// Message is short and human-readable; it is what the UI shows.
type SyncError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewUnauthorizedError is returned when the backend rejects the credential.
// The engine treats it as a forced logout.
func NewUnauthorizedError(reason string) *SyncError {
	return &SyncError{
		Code:    "UNAUTHORIZED",
		Message: "Your session has expired. Please sign in again.",
		Err:     fmt.Errorf("%w: %s", ErrUnauthorized, reason),
	}
}

// NewItemNotFoundError reports a product variant the backend no longer knows.
func NewItemNotFoundError(itemID string) *SyncError {
	return &SyncError{
		Code:    "ITEM_NOT_FOUND",
		Message: "This item is no longer available.",
		Err:     fmt.Errorf("%w: %s", ErrItemNotFound, itemID),
	}
}

// NewLineNotFoundError reports a line ID unknown to the server.
func NewLineNotFoundError(lineID string) *SyncError {
	return &SyncError{
		Code:    "LINE_NOT_FOUND",
		Message: "This item is out of date. Remove it and add it again.",
		Err:     fmt.Errorf("%w: %s", ErrLineNotFound, lineID),
	}
}

// NewStaleLineError rejects a mutation against a line without a server ID.
func NewStaleLineError(itemID string) *SyncError {
	return &SyncError{
		Code:    "STALE_LINE",
		Message: "This item is out of date. Remove it and add it again.",
		Err:     fmt.Errorf("%w: %s", ErrStaleLine, itemID),
	}
}

// NewUnreachableError wraps transport failures, timeouts and 5xx responses.
func NewUnreachableError(op string, err error) *SyncError {
	return &SyncError{
		Code:    "UNREACHABLE",
		Message: "We couldn't reach the store. Please try again.",
		Err:     fmt.Errorf("%w: %s: %w", ErrUnreachable, op, err),
	}
}

// NewValidationError reports invalid caller input.
func NewValidationError(field, reason string) *SyncError {
	return &SyncError{
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("invalid %s: %s", field, reason),
		Err:     ErrInvalidRequest,
	}
}

// NewNotInCartError reports an item ID with no matching cart line.
func NewNotInCartError(itemID string) *SyncError {
	return &SyncError{
		Code:    "NOT_IN_CART",
		Message: "This item is not in your cart.",
		Err:     fmt.Errorf("%w: %s", ErrItemNotFound, itemID),
	}
}

// NewNotInWishlistError reports an item ID missing from the wishlist.
func NewNotInWishlistError(itemID string) *SyncError {
	return &SyncError{
		Code:    "NOT_IN_WISHLIST",
		Message: "This item is not in your wishlist.",
		Err:     fmt.Errorf("%w: %s", ErrItemNotFound, itemID),
	}
}

// NewSessionChangedError is returned when the user signed in or out while a
// call was in flight. Its result was discarded.
func NewSessionChangedError() *SyncError {
	return &SyncError{
		Code:    "SESSION_CHANGED",
		Message: "Your session changed. Please try again.",
		Err:     ErrSessionChanged,
	}
}

// CodeRemoveNotConfirmed marks a removal that is applied locally but not yet
// confirmed by the server.
const CodeRemoveNotConfirmed = "REMOVE_NOT_CONFIRMED"

// IsRemoveNotConfirmed reports whether err is a non-fatal unconfirmed removal.
func IsRemoveNotConfirmed(err error) bool {
	var syncErr *SyncError
	return errors.As(err, &syncErr) && syncErr.Code == CodeRemoveNotConfirmed
}

// NewRemoveNotConfirmedError is the non-fatal result of an optimistic cart
// removal the server did not confirm. The line stays removed locally.
func NewRemoveNotConfirmedError(itemID string, err error) *SyncError {
	return &SyncError{
		Code:    CodeRemoveNotConfirmed,
		Message: "The item was removed here but the store didn't confirm it yet.",
		Err:     fmt.Errorf("removing %s: %w", itemID, err),
	}
}

// NewNotSupportedError reports an operation unavailable in the current mode.
func NewNotSupportedError(what string) *SyncError {
	return &SyncError{
		Code:    "NOT_SUPPORTED",
		Message: fmt.Sprintf("%s is not available right now.", what),
		Err:     ErrNotSupported,
	}
}

// NewInternalError wraps unexpected failures.
func NewInternalError(err error) *SyncError {
	return &SyncError{
		Code:    "INTERNAL_ERROR",
		Message: "Something went wrong. Please try again.",
		Err:     err,
	}
}

// UserMessage returns the short message to show for err.
// Errors that are not a SyncError get a generic message so internals never leak.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Message
	}
	if errors.Is(err, ErrUnreachable) {
		return "We couldn't reach the store. Please try again."
	}
	return "Something went wrong. Please try again."
}
