package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeEmbedding represents text that could not be embedded
	ErrorTypeEmbedding ErrorType = "embedding"
	// ErrorTypeExternal represents an unreachable or failing collaborator service
	ErrorTypeExternal ErrorType = "external"
	// ErrorTypeGraphConsistency represents a non-fatal inconsistency found in the graph
	ErrorTypeGraphConsistency ErrorType = "graph_consistency"
	// ErrorTypeFeedback represents invalid user feedback
	ErrorTypeFeedback ErrorType = "feedback"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Embedding Errors

// EmbeddingError is returned when text cannot be turned into a vector.
// Callers fall back to a zero vector instead of failing.
type EmbeddingError struct {
	*BaseError
	Text string
}

func NewEmbeddingError(text string, err error) *EmbeddingError {
	preview := text
	if len(preview) > 64 {
		preview = preview[:64]
	}
	return &EmbeddingError{
		BaseError: NewBaseError(ErrorTypeEmbedding, fmt.Sprintf("cannot embed text %q", preview), err),
		Text:      text,
	}
}

// External Service Errors

// ExternalServiceError is returned when a collaborator (article source, extractor,
// embedding service, graph store, article store) is unreachable. Fatal to a batch.
type ExternalServiceError struct {
	*BaseError
	Service string
}

func NewExternalServiceError(service string, err error) *ExternalServiceError {
	return &ExternalServiceError{
		BaseError: NewBaseError(ErrorTypeExternal, fmt.Sprintf("%s unavailable", service), err),
		Service:   service,
	}
}

// Graph Consistency Warnings

// GraphConsistencyWarning describes an edge whose neighbor has no usable embedding.
// It is logged and the neighbor is skipped.
type GraphConsistencyWarning struct {
	*BaseError
	ArticleID  string
	NeighborID string
}

func NewGraphConsistencyWarning(articleID, neighborID, reason string) *GraphConsistencyWarning {
	return &GraphConsistencyWarning{
		BaseError:  NewBaseError(ErrorTypeGraphConsistency, fmt.Sprintf("neighbor %s of %s: %s", neighborID, articleID, reason), nil),
		ArticleID:  articleID,
		NeighborID: neighborID,
	}
}

// Feedback Errors

// ErrArticleNotFound is returned when feedback targets an unknown article
var ErrArticleNotFound = NewBaseError(ErrorTypeFeedback, "article not found", nil)

// ErrInvalidReaction is returned for reactions outside love/like/dislike/skipped
var ErrInvalidReaction = NewBaseError(ErrorTypeFeedback, "invalid reaction", nil)

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error, or anything it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if t, ok := typeOf(err); ok && t == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

func typeOf(err error) (ErrorType, bool) {
	switch e := err.(type) {
	case *BaseError:
		return e.Type, true
	case *EmbeddingError:
		return e.Type, true
	case *ExternalServiceError:
		return e.Type, true
	case *GraphConsistencyWarning:
		return e.Type, true
	case *ErrConfigValidationFailed:
		return e.Type, true
	case *ErrConfigMissingRequired:
		return e.Type, true
	}
	return "", false
}

// IsFatalToBatch reports whether err must abort the current ranking batch
func IsFatalToBatch(err error) bool {
	return IsErrorType(err, ErrorTypeExternal)
}
