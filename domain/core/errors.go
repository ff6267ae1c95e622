package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Model recovery errors
	ErrNoModel = errors.New("no fitted model attached to results table")

	// Analysis selection errors
	ErrUnsupportedAnalysis = errors.New("unsupported sensitivity analysis type")
	ErrNotImplemented      = errors.New("analysis type not implemented")

	// Data errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrJoinKeyMismatch  = errors.New("study labels in model and table disagree")

	// Collaborator errors
	ErrRefitFailed = errors.New("refit function failed")
	ErrNoRefitter  = errors.New("model provides no refit implementation")
	ErrNoTidier    = errors.New("model provides no tidy summary implementation")
)

// Error constructors with context
func NewUnsupportedAnalysisError(requested string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedAnalysis, requested)
}

func NewJoinKeyMismatchError(study string) error {
	return fmt.Errorf("%w: study %q not found in model labels", ErrJoinKeyMismatch, study)
}

func NewRefitError(err error) error {
	return fmt.Errorf("%w: %v", ErrRefitFailed, err)
}

func NewInsufficientDataError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInsufficientData, reason)
}

// Error checking helpers
func IsModelExtractionError(err error) bool {
	return errors.Is(err, ErrNoModel)
}

func IsAnalysisTypeError(err error) bool {
	return errors.Is(err, ErrUnsupportedAnalysis) ||
		errors.Is(err, ErrNotImplemented)
}

func IsDataError(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrJoinKeyMismatch)
}
