package domain

import "errors"

// Domain errors
var (
	// Access errors
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("action not allowed for this role")

	// Not found errors
	ErrZoneNotFound    = errors.New("zone not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrRequestNotFound = errors.New("booking request not found")

	// State errors
	ErrInvalidTransition = errors.New("invalid status transition")

	// Conflict errors
	ErrZoneHasBookings     = errors.New("zone has bookings and cannot be deleted")
	ErrZoneNotAvailable    = errors.New("zone is not available")
	ErrDuplicateIdentifier = errors.New("zone identifier already exists")
	ErrZoneConflict        = errors.New("zone is referenced by other records")

	// Validation errors
	ErrInvalidZoneID        = errors.New("invalid zone id")
	ErrInvalidBookingID     = errors.New("invalid booking id")
	ErrInvalidRequestID     = errors.New("invalid request id")
	ErrInvalidZoneStatus    = errors.New("invalid zone status")
	ErrInvalidBookingStatus = errors.New("invalid booking status")
	ErrInvalidRequestStatus = errors.New("invalid request status")
	ErrInvalidRole          = errors.New("invalid role")
	ErrEmptyZoneList        = errors.New("zone id list is empty")
	ErrEmptyClaim           = errors.New("supplier or brand is required")
	ErrInvalidIdentifier    = errors.New("zone identifier is required")
	ErrInvalidCategory      = errors.New("zone category is required")
	ErrInvalidPage          = errors.New("page is out of range")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrZoneNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrRequestNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidZoneID) ||
		errors.Is(err, ErrInvalidBookingID) ||
		errors.Is(err, ErrInvalidRequestID) ||
		errors.Is(err, ErrInvalidZoneStatus) ||
		errors.Is(err, ErrInvalidBookingStatus) ||
		errors.Is(err, ErrInvalidRequestStatus) ||
		errors.Is(err, ErrInvalidRole) ||
		errors.Is(err, ErrEmptyZoneList) ||
		errors.Is(err, ErrEmptyClaim) ||
		errors.Is(err, ErrInvalidIdentifier) ||
		errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrInvalidPage)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrZoneHasBookings) ||
		errors.Is(err, ErrZoneNotAvailable) ||
		errors.Is(err, ErrDuplicateIdentifier) ||
		errors.Is(err, ErrZoneConflict)
}

// IsForbiddenError checks if the error is an access error
func IsForbiddenError(err error) bool {
	return errors.Is(err, ErrForbidden)
}
