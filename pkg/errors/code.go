package errors

import "net/http"

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Identity & Profile errors
// 12000-12999: Challenge module errors
// 13000-13999: Solution lifecycle errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError     ErrorCode = 10100
	RecordNotFound    ErrorCode = 10101
	RecordConflict    ErrorCode = 10102
	TransactionFailed ErrorCode = 10103

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200
	CacheMiss  ErrorCode = 10201
	LockFailed ErrorCode = 10202

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// Storage & Messaging errors (10400-10499)
	StorageError ErrorCode = 10400
	PublishError ErrorCode = 10401

	// ========== Identity & Profile Errors (11000-11999) ==========

	// Authentication (11000-11099)
	TokenInvalid ErrorCode = 11000
	TokenExpired ErrorCode = 11001
	UserNotFound ErrorCode = 11002

	// Profiles (11100-11199)
	ProfileNotFound  ErrorCode = 11100
	RoleNotAllowed   ErrorCode = 11101
	ProfileSuspended ErrorCode = 11102

	// ========== Challenge Module Errors (12000-12999) ==========

	// Challenge basic (12000-12099)
	ChallengeNotFound     ErrorCode = 12000
	ChallengeClosed       ErrorCode = 12001
	ChallengeCreateFailed ErrorCode = 12002
	ChallengeAccessDenied ErrorCode = 12003

	// Winner selection (12100-12199)
	WinnerAlreadySelected ErrorCode = 12100
	SelectionFailed       ErrorCode = 12101

	// ========== Solution Lifecycle Errors (13000-13999) ==========

	// Solution basic (13000-13099)
	SolutionNotFound     ErrorCode = 13000
	SolutionCreateFailed ErrorCode = 13001
	SolutionUpdateFailed ErrorCode = 13002
	NotSolutionOwner     ErrorCode = 13003
	SubmitTooFrequently  ErrorCode = 13004
	DescriptionTooLarge  ErrorCode = 13005

	// Lifecycle transitions (13100-13199)
	InvalidTransition   ErrorCode = 13100
	SolutionLocked      ErrorCode = 13101
	AlreadyClaimed      ErrorCode = 13102
	NotAssignedReviewer ErrorCode = 13103
	ScoreOutOfRange     ErrorCode = 13104
	ReviewOutcomeWrong  ErrorCode = 13105
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:     "Database operation failed",
	RecordNotFound:    "Record not found in database",
	RecordConflict:    "Record was modified concurrently",
	TransactionFailed: "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",
	CacheMiss:  "Cache miss",
	LockFailed: "Failed to acquire lock",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Storage & Messaging
	StorageError: "Object storage operation failed",
	PublishError: "Event publish failed",

	// Identity
	TokenInvalid:     "Token is invalid",
	TokenExpired:     "Token has expired",
	UserNotFound:     "User not found",
	ProfileNotFound:  "Profile not found",
	RoleNotAllowed:   "Role is not allowed to perform this action",
	ProfileSuspended: "Profile is suspended",

	// Challenge
	ChallengeNotFound:     "Challenge not found",
	ChallengeClosed:       "Challenge is closed for submissions",
	ChallengeCreateFailed: "Failed to create challenge",
	ChallengeAccessDenied: "Challenge does not belong to caller",
	WinnerAlreadySelected: "A winner has already been selected for this challenge",
	SelectionFailed:       "Failed to select winner",

	// Solution
	SolutionNotFound:     "Solution not found",
	SolutionCreateFailed: "Failed to create solution",
	SolutionUpdateFailed: "Failed to update solution",
	NotSolutionOwner:     "Solution does not belong to caller",
	SubmitTooFrequently:  "Submitting too frequently, please try again later",
	DescriptionTooLarge:  "Solution description too large",

	// Lifecycle
	InvalidTransition:   "Transition is not legal from the current status",
	SolutionLocked:      "Solution already under review",
	AlreadyClaimed:      "Solution already claimed by another reviewer",
	NotAssignedReviewer: "Only the claiming reviewer may review this solution",
	ScoreOutOfRange:     "Score must be between 0 and 100",
	ReviewOutcomeWrong:  "Review outcome must be approved or rejected",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// httpStatuses maps error codes to HTTP status codes.
// Codes without an explicit entry fall back to 500.
var httpStatuses = map[ErrorCode]int{
	Success:             http.StatusOK,
	InternalServerError: http.StatusInternalServerError,
	InvalidParams:       http.StatusBadRequest,
	NotFound:            http.StatusNotFound,
	Unauthorized:        http.StatusUnauthorized,
	Forbidden:           http.StatusForbidden,
	TooManyRequests:     http.StatusTooManyRequests,
	ServiceUnavailable:  http.StatusServiceUnavailable,
	Timeout:             http.StatusGatewayTimeout,

	RecordNotFound: http.StatusNotFound,
	RecordConflict: http.StatusConflict,

	ValidationFailed:   http.StatusBadRequest,
	InvalidFormat:      http.StatusBadRequest,
	InvalidValue:       http.StatusBadRequest,
	RequiredFieldEmpty: http.StatusBadRequest,

	TokenInvalid: http.StatusUnauthorized,
	TokenExpired: http.StatusUnauthorized,
	UserNotFound: http.StatusNotFound,

	ProfileNotFound:  http.StatusNotFound,
	RoleNotAllowed:   http.StatusForbidden,
	ProfileSuspended: http.StatusForbidden,

	ChallengeNotFound:     http.StatusNotFound,
	ChallengeClosed:       http.StatusConflict,
	ChallengeAccessDenied: http.StatusForbidden,
	WinnerAlreadySelected: http.StatusConflict,

	SolutionNotFound:    http.StatusNotFound,
	NotSolutionOwner:    http.StatusForbidden,
	SubmitTooFrequently: http.StatusTooManyRequests,
	DescriptionTooLarge: http.StatusBadRequest,

	InvalidTransition:   http.StatusConflict,
	SolutionLocked:      http.StatusConflict,
	AlreadyClaimed:      http.StatusConflict,
	NotAssignedReviewer: http.StatusForbidden,
	ScoreOutOfRange:     http.StatusBadRequest,
	ReviewOutcomeWrong:  http.StatusBadRequest,
}

// HTTPStatus returns the HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	if status, ok := httpStatuses[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}
