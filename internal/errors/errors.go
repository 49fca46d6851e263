// Package errors provides standardized error codes for the dashboard host.
//
// Error codes follow the format {domain}.{error} where:
//   - domain: The subsystem that generated the error (device, cache, server)
//   - error: The specific error type within that domain
//
// Codes are stable so callers (HTTP handlers, session loops, tests) can
// branch on them without string-matching human-readable messages.
package errors

import (
	"errors"
	"fmt"
)

// Error codes by domain.
const (
	// Device domain - remote speaker metadata queries
	CodeDeviceUnavailable = "device.unavailable" // Speaker offline or unreachable
	CodeDeviceUnknown     = "device.unknown"     // Speaker name not configured
	CodeDeviceBadResponse = "device.bad_response" // Speaker returned an unparseable response

	// Cache domain - image proxy cache
	CodeCacheNotFound    = "cache.not_found"     // No cached file for the requested URL
	CodeCacheFetchFailed = "cache.fetch_failed"  // Upstream image fetch failed
	CodeCacheWriteFailed = "cache.write_failed"  // Could not persist the fetched image

	// Server domain - WebSocket and HTTP errors
	CodeServerUpgradeFailed    = "server.upgrade_failed"    // WebSocket upgrade failed
	CodeServerInvalidMessage   = "server.invalid_message"   // Malformed or invalid client message
	CodeServerDuplicateSession = "server.duplicate_session" // Session identifier collision
	CodeServerSendFailed       = "server.send_failed"       // Failed to send message to client
	CodeServerConnectionLost   = "server.connection_lost"   // Connection unexpectedly closed

	// Search domain - station directory lookups
	CodeSearchFailed = "search.failed" // Station search request failed

	// General domain - catch-all errors
	CodeUnknown  = "error.unknown"  // Unknown error
	CodeInternal = "error.internal" // Internal server error
)

// CodedError wraps an error with a stable error code.
// This allows errors to carry both a code for programmatic handling
// and a message for human consumption.
type CodedError struct {
	Code    string // Stable error code (e.g., "cache.not_found")
	Message string // Human-readable error message
	Cause   error  // Underlying error (may be nil)
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CodedError) Unwrap() error {
	return e.Cause
}

// New creates a new CodedError with the given code and message.
func New(code, message string) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new CodedError wrapping an existing error.
func Wrap(code, message string, cause error) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// GetCode extracts the error code from an error.
// If the error is a CodedError, returns its code.
// Falls back to CodeUnknown for unrecognized errors.
func GetCode(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}

	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code string) bool {
	return GetCode(err) == code
}

// Common error constructors for frequently used error types.

// DeviceUnavailable creates a "device.unavailable" error.
// Speaker offline is an expected condition, not a session-fatal one:
// callers log it and drop the refresh.
func DeviceUnavailable(name string, cause error) *CodedError {
	return Wrap(CodeDeviceUnavailable, fmt.Sprintf("speaker %q is unreachable", name), cause)
}

// UnknownDevice creates a "device.unknown" error.
func UnknownDevice(name string) *CodedError {
	return New(CodeDeviceUnknown, fmt.Sprintf("speaker %q is not configured", name))
}

// CacheNotFound creates a "cache.not_found" error.
// Surfaced to HTTP clients as a 404 by the image proxy handler.
func CacheNotFound(url string) *CodedError {
	return New(CodeCacheNotFound, fmt.Sprintf("no cached image for %s", url))
}

// FetchFailed creates a "cache.fetch_failed" error.
func FetchFailed(url string, cause error) *CodedError {
	return Wrap(CodeCacheFetchFailed, fmt.Sprintf("fetching %s failed", url), cause)
}

// InvalidMessage creates a "server.invalid_message" error.
func InvalidMessage(reason string) *CodedError {
	return New(CodeServerInvalidMessage, reason)
}

// DuplicateSession creates a "server.duplicate_session" error.
func DuplicateSession(id string) *CodedError {
	return New(CodeServerDuplicateSession, fmt.Sprintf("session %s is already registered", id))
}

// Internal creates an "error.internal" error.
func Internal(message string, cause error) *CodedError {
	return Wrap(CodeInternal, message, cause)
}
