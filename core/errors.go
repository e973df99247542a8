package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These map the advisory pipeline's error taxonomy and can be wrapped
// with additional context.
var (
	// Request errors
	ErrBadRequest = errors.New("bad request")

	// Upstream errors - external HTTP endpoints (directories, weather,
	// retrieval). Never surfaced to callers; agents degrade instead.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// Storage errors - learning store inaccessible. Reads return nil,
	// writes return false, the pipeline proceeds.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Agent errors - internal failure inside an analysis agent. Captured
	// into the result's agent_errors, never raised.
	ErrAgentFailure = errors.New("agent failure")

	// Rate limiting - the only error besides bad request that
	// short-circuits the pipeline.
	ErrRateLimited = errors.New("rate limited")

	// Orchestrator catch-all
	ErrOrchestratorFailure = errors.New("orchestrator failure")

	// Operation errors
	ErrTimeout              = errors.New("operation timeout")
	ErrConnectionFailed     = errors.New("connection failed")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// AdvisorError provides structured error information with context.
// It implements the error interface and supports error wrapping.
type AdvisorError struct {
	Op      string // Operation that failed (e.g., "location.Resolve")
	Kind    string // Error kind (e.g., "upstream", "storage", "agent")
	ID      string // Optional ID of the entity involved (pincode, region, session)
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *AdvisorError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *AdvisorError) Unwrap() error {
	return e.Err
}

// NewAdvisorError creates a new AdvisorError
func NewAdvisorError(op, kind string, err error) *AdvisorError {
	return &AdvisorError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsRetryable checks if an error is retryable.
// Retryable errors are typically transient network or availability issues.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionFailed)
}

// IsRateLimited checks if an error represents a rate-limit rejection
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsBadRequest checks if an error is a client-input error
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest)
}
