// Package errors provides the structured error types shared by the crop
// pipeline and its collaborators.
//
// Every failure the pipeline can report carries a machine-readable Code so
// that entry points (CLI, HTTP) can translate it without string matching:
//
//	err := errors.New(errors.ErrCodeEmptyFaceSet, "no faces to center on")
//	if errors.Is(err, errors.ErrCodeEmptyFaceSet) {
//	    // ...
//	}
//
//	err := errors.Wrap(errors.ErrCodeImageFetch, origErr, "failed to fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the crop pipeline and its collaborators.
const (
	// Geometry and validation errors raised by the core
	ErrCodeInvalidDimension    Code = "INVALID_DIMENSION"
	ErrCodeEmptyFaceSet        Code = "EMPTY_FACE_SET"
	ErrCodeInvalidFaceBox      Code = "INVALID_FACE_BOX"
	ErrCodeAspectRatioMismatch Code = "ASPECT_RATIO_MISMATCH"

	// Collaborator errors
	ErrCodeImageFetch      Code = "IMAGE_FETCH"
	ErrCodeNoFacesDetected Code = "NO_FACES_DETECTED"
	ErrCodeDetection       Code = "DETECTION"
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeEncode          Code = "ENCODE"
	ErrCodeEncodedTooLarge Code = "ENCODED_TOO_LARGE"
	ErrCodeStorage         Code = "STORAGE"

	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// coder is implemented by error types that are not *Error but still carry a code.
type coder interface {
	ErrorCode() Code
}

// Is reports whether err has the given error code.
// The outermost coded error in the chain wins.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case coder:
			return e.ErrorCode()
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// AspectRatioMismatchError is returned when an image's ratio is too far
// from the requested output ratio to be resized without distortion.
type AspectRatioMismatchError struct {
	Original    float64 // measured width/height of the input
	Target      float64 // requested width/height
	DiffPercent float64 // |Original-Target|/Original * 100
}

// Error implements the error interface.
func (e *AspectRatioMismatchError) Error() string {
	return fmt.Sprintf("aspect ratio mismatch: %.4f != %.4f (difference: %.2f%%)",
		e.Original, e.Target, e.DiffPercent)
}

// ErrorCode returns the error code for this error type.
func (e *AspectRatioMismatchError) ErrorCode() Code {
	return ErrCodeAspectRatioMismatch
}
