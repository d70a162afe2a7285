// Package errors provides the assessment error taxonomy and its mapping onto BPMN workflow errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Domain errors surfaced to callers
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeAssessmentNotFound ErrorCode = "ASSESSMENT_NOT_FOUND"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	ErrCodeAssessmentConflict ErrorCode = "ASSESSMENT_CONFLICT"

	// Infrastructure errors
	ErrCodeDatabaseConnectionFailed      ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed          ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed          ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeStorageFailed                 ErrorCode = "STORAGE_FAILED"
	ErrCodeCacheOperationFailed          ErrorCode = "CACHE_OPERATION_FAILED"
	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchUnavailable             ErrorCode = "SEARCH_UNAVAILABLE"
	ErrCodeNotificationSendFailed        ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeWorkflowEngineFailed          ErrorCode = "WORKFLOW_ENGINE_FAILED"
	ErrCodeInternal                      ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another StandardError by code, so errors.Is(err, &StandardError{Code: c}) works.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError reports every missing and invalid key at once.
func NewValidationError(details string, missing, invalid []string) *StandardError {
	meta := map[string]interface{}{}
	if len(missing) > 0 {
		meta["missing"] = missing
	}
	if len(invalid) > 0 {
		meta["invalid"] = invalid
	}
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Validation failed",
		Details:   details,
		Retryable: false,
		Metadata:  meta,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotFoundError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAssessmentNotFound,
		Message:   "Assessment not found",
		Details:   fmt.Sprintf("assessmentId: %s", id),
		Retryable: false,
		Metadata:  map[string]interface{}{"assessmentId": id},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError names the status the record is currently in.
func NewInvalidTransitionError(id, currentStatus string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   fmt.Sprintf("Assessment is already %s", currentStatus),
		Details:   fmt.Sprintf("assessmentId: %s, currentStatus: %s", id, currentStatus),
		Retryable: false,
		Metadata: map[string]interface{}{
			"assessmentId":  id,
			"currentStatus": currentStatus,
		},
		Timestamp: time.Now().UTC(),
	}
}

func NewConflictError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAssessmentConflict,
		Message:   "Assessment already exists",
		Details:   fmt.Sprintf("assessmentId: %s", id),
		Retryable: false,
		Metadata:  map[string]interface{}{"assessmentId": id},
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return wrap(ErrCodeDatabaseConnectionFailed, "Database connection error", err)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	e := wrap(ErrCodeQueryExecutionFailed, "Database query execution error", err)
	e.Details = fmt.Sprintf("operation: %s, error: %s", operation, err.Error())
	return e
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return wrap(ErrCodeDatabaseInsertFailed, "Database insert operation failed", err)
}

func NewStorageError(operation string, err error) *StandardError {
	e := wrap(ErrCodeStorageFailed, "Assessment storage error", err)
	e.Details = fmt.Sprintf("operation: %s, error: %s", operation, err.Error())
	return e
}

func NewCacheError(operation string, err error) *StandardError {
	e := wrap(ErrCodeCacheOperationFailed, "Cache operation failed", err)
	e.Details = fmt.Sprintf("operation: %s, error: %s", operation, err.Error())
	return e
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return wrap(ErrCodeElasticsearchConnectionFailed, "Elasticsearch connection error", err)
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(operation string, err error) *StandardError {
	e := wrap(ErrCodeSearchQueryFailed, "Elasticsearch query error", err)
	e.Details = fmt.Sprintf("operation: %s, error: %s", operation, err.Error())
	return e
}

func NewSearchUnavailableError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchUnavailable,
		Message:   "Search is not configured",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	e := wrap(ErrCodeNotificationSendFailed, "Notification delivery failed", err)
	e.Details = fmt.Sprintf("type: %s, error: %s", notificationType, err.Error())
	return e
}

// NewWorkflowEngineError wraps a failed Zeebe gateway call.
func NewWorkflowEngineError(operation string, err error) *StandardError {
	e := wrap(ErrCodeWorkflowEngineFailed, "Workflow engine request failed", err)
	e.Details = fmt.Sprintf("operation: %s, error: %s", operation, err.Error())
	return e
}

func wrap(code ErrorCode, message string, err error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the error codes modelled in the process.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:              "VALIDATION_FAILED",
	ErrCodeAssessmentNotFound:            "ASSESSMENT_NOT_FOUND",
	ErrCodeInvalidTransition:             "INVALID_TRANSITION",
	ErrCodeAssessmentConflict:            "ASSESSMENT_CONFLICT",
	ErrCodeDatabaseConnectionFailed:      "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:          "QUERY_EXECUTION_FAILED",
	ErrCodeDatabaseInsertFailed:          "DATABASE_INSERT_FAILED",
	ErrCodeStorageFailed:                 "STORAGE_FAILED",
	ErrCodeCacheOperationFailed:          "CACHE_OPERATION_FAILED",
	ErrCodeElasticsearchConnectionFailed: "ELASTICSEARCH_CONNECTION_FAILED",
	ErrCodeSearchQueryFailed:             "SEARCH_QUERY_FAILED",
	ErrCodeNotificationSendFailed:        "NOTIFICATION_SEND_FAILED",
	ErrCodeWorkflowEngineFailed:          "WORKFLOW_ENGINE_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeStorageFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeWorkflowEngineFailed:
		return 3

	case ErrCodeCacheOperationFailed:
		return 1

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard extracts a StandardError from an error chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode checks the code of the outermost StandardError in the chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

func IsValidation(err error) bool        { return HasCode(err, ErrCodeValidationFailed) }
func IsNotFound(err error) bool          { return HasCode(err, ErrCodeAssessmentNotFound) }
func IsInvalidTransition(err error) bool { return HasCode(err, ErrCodeInvalidTransition) }
func IsConflict(err error) bool          { return HasCode(err, ErrCodeAssessmentConflict) }

// MetadataStrings returns a string slice stored under key, e.g. the missing answer keys.
func MetadataStrings(err error, key string) []string {
	stdErr, ok := AsStandard(err)
	if !ok {
		return nil
	}
	v, _ := stdErr.Metadata[key].([]string)
	return v
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "STORAGE"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "WORKFLOW"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "ASSESSMENT") || strings.Contains(codeStr, "TRANSITION"):
		return "LIFECYCLE"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
