package analyzer

import (
	"errors"
	"fmt"

	"github.com/f-sync/igsync/internal/unfollow"
)

const (
	errMessageMissingInput        = "missing input document"
	errMessageNoHandlesExtracted  = "no handles extracted"
	errMessageReadFailure         = "read failure"
	errMessageAnalysisInProgress  = "analysis already in progress"
	userMessageMissingInput       = "Please upload both files"
	userMessageNoHandlesExtracted = "Could not extract Instagram usernames. Please ensure you're uploading the correct HTML files"
	userMessageReadFailure        = "Could not read the uploaded files. Please try again"
	userMessageAnalysisInProgress = "An analysis is already running. Please wait for it to finish"
	userMessageUnexpected         = "Something went wrong while analyzing your files. Please try again"
)

// ErrorKind classifies analysis failures.
type ErrorKind string

const (
	// KindMissingInput reports that one or both documents were not supplied.
	KindMissingInput ErrorKind = "MissingInputError"
	// KindNoHandlesExtracted reports that a document contained no profile links.
	KindNoHandlesExtracted ErrorKind = "NoHandlesExtractedError"
	// KindReadFailure reports that a document could not be read as text.
	KindReadFailure ErrorKind = "ReadFailureError"
)

var (
	// ErrMissingInput matches every KindMissingInput failure.
	ErrMissingInput = errors.New(errMessageMissingInput)
	// ErrNoHandlesExtracted matches every KindNoHandlesExtracted failure.
	ErrNoHandlesExtracted = errors.New(errMessageNoHandlesExtracted)
	// ErrReadFailure matches every KindReadFailure failure.
	ErrReadFailure = errors.New(errMessageReadFailure)
	// ErrAnalysisInProgress is returned when a session is asked to start a second analysis.
	ErrAnalysisInProgress = errors.New(errMessageAnalysisInProgress)
)

// AnalysisError describes a failed analysis along with the document roles involved.
type AnalysisError struct {
	Kind  ErrorKind
	Roles []unfollow.Role
	Err   error
}

func newAnalysisError(kind ErrorKind, cause error, roles ...unfollow.Role) *AnalysisError {
	return &AnalysisError{Kind: kind, Roles: roles, Err: cause}
}

// NewReadFailure reports documents that could not be read for the given roles.
func NewReadFailure(cause error, roles ...unfollow.Role) *AnalysisError {
	return newAnalysisError(KindReadFailure, cause, roles...)
}

func (analysisError *AnalysisError) Error() string {
	message := fmt.Sprintf("%s %v", analysisError.sentinel().Error(), analysisError.Roles)
	if analysisError.Err == nil {
		return message
	}
	return fmt.Sprintf("%s: %v", message, analysisError.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is and errors.As.
func (analysisError *AnalysisError) Unwrap() []error {
	unwrapped := []error{analysisError.sentinel()}
	if analysisError.Err != nil {
		unwrapped = append(unwrapped, analysisError.Err)
	}
	return unwrapped
}

func (analysisError *AnalysisError) sentinel() error {
	switch analysisError.Kind {
	case KindMissingInput:
		return ErrMissingInput
	case KindNoHandlesExtracted:
		return ErrNoHandlesExtracted
	default:
		return ErrReadFailure
	}
}

// UserMessage converts any analysis error into the single message shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingInput):
		return userMessageMissingInput
	case errors.Is(err, ErrNoHandlesExtracted):
		return userMessageNoHandlesExtracted
	case errors.Is(err, ErrReadFailure):
		return userMessageReadFailure
	case errors.Is(err, ErrAnalysisInProgress):
		return userMessageAnalysisInProgress
	default:
		return userMessageUnexpected
	}
}
