package server

import "net/http"

// Stable integer error codes carried in the error_code response field.
// Values are append-only so clients can match on them across releases.
const (
	// 1xxx: request validation.
	ErrCodeInvalidArgument   = 1000
	ErrCodeInvalidJSON       = 1001
	ErrCodeRequestTooLarge   = 1002
	ErrCodeInvalidQuery      = 1003
	ErrCodeInvalidID         = 1004
	ErrCodeInvalidStatus     = 1005
	ErrCodeInvalidType       = 1006
	ErrCodeInvalidPriority   = 1007
	ErrCodeInvalidLabel      = 1008
	ErrCodeMissingRequired   = 1009
	ErrCodeInvalidTimeFilter = 1010
	ErrCodeInvalidImportMode = 1011
	ErrCodeInvalidDependency = 1012
	ErrCodeInvalidParentID   = 1013
	ErrCodeInvalidSearch     = 1014

	// 2xxx: domain lookups and conflicts.
	ErrCodeTaskNotFound       = 2001
	ErrCodeDependencyNotFound = 2002
	ErrCodeAttachmentNotFound = 2003
	ErrCodeGitRefNotFound     = 2004
	ErrCodeTaskIDExists       = 2101
	ErrCodeConflict           = 2102

	// 3xxx: auth and limits.
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// 4xxx: server-side failures.
	ErrCodeInternal       = 4001
	ErrCodeStoreFailure   = 4002
	ErrCodeExportFailed   = 4003
	ErrCodeImportFailed   = 4004
	ErrCodeNotImplemented = 4005
)

// defaultErrorCodeByStatus fills in error_code when a handler did not pick a
// more specific one.
func defaultErrorCodeByStatus(status int) int {
	switch status {
	case http.StatusBadRequest:
		return ErrCodeInvalidArgument
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusForbidden:
		return ErrCodeForbidden
	case http.StatusNotFound:
		return ErrCodeTaskNotFound
	case http.StatusConflict:
		return ErrCodeConflict
	case http.StatusRequestEntityTooLarge:
		return ErrCodeRequestTooLarge
	case http.StatusTooManyRequests:
		return ErrCodeResourceExhausted
	case http.StatusNotImplemented:
		return ErrCodeNotImplemented
	default:
		return ErrCodeInternal
	}
}
