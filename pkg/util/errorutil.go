package util

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewAlreadyAssigned(staffID, workItemID string) error {
	return NewDomainError("ALREADY_ASSIGNED", "assignment already exists", http.StatusConflict, map[string]any{
		"staff_id":     staffID,
		"work_item_id": workItemID,
	})
}

func NewCapacityExceeded(message string, details map[string]any) error {
	return NewDomainError("CAPACITY_EXCEEDED", message, http.StatusConflict, details)
}

func NewNoEligibleCandidate(message string, details map[string]any) error {
	return NewDomainError("NO_ELIGIBLE_CANDIDATE", message, http.StatusUnprocessableEntity, details)
}

func NewStaleSuggestion(message string, details map[string]any) error {
	return NewDomainError("STALE_SUGGESTION", message, http.StatusConflict, details)
}

func NewConcurrentModification(message string, details map[string]any) error {
	return NewDomainError("CONCURRENT_MODIFICATION", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// CodeOf extracts the error code, or INTERNAL_ERROR for unclassified errors.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return ToDomainError(err).Code
}
