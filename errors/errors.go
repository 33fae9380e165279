package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Fatal marks construction-time errors that abort the program.
	Fatal bool `json:"fatal"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError, marking construction-time codes as fatal.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Fatal:   IsFatalCode(code),
	}
}

// --- Common Error Constructors ---

// ConflictingProducer creates the error raised when a second, different task
// declares a file that already has a producer.
func ConflictingProducer(path, existing, incoming string) *AppError {
	return &AppError{
		Code:    ErrCodeConfiguration,
		Message: fmt.Sprintf("file %s is already produced by another task: %s", path, existing),
		Fatal:   true,
		Details: map[string]any{"path": path, "producer": existing, "task": incoming},
	}
}

// DuplicateTaskName creates the error raised when a second, different task
// reuses the name of a registered one.
func DuplicateTaskName(name string) *AppError {
	return &AppError{
		Code:    ErrCodeConfiguration,
		Message: fmt.Sprintf("task name %s is already used by another task", name),
		Fatal:   true,
		Details: map[string]any{"task": name},
	}
}

// Configuration creates a generic graph configuration error.
func Configuration(reason string) *AppError {
	return &AppError{Code: ErrCodeConfiguration, Message: reason, Fatal: true}
}

// CycleDetected creates the error for a graph whose tasks cannot all be ordered.
func CycleDetected(ordered, total int) *AppError {
	return &AppError{
		Code:    ErrCodeCycleDetected,
		Message: fmt.Sprintf("cycle detected, ordered %d of %d tasks", ordered, total),
		Fatal:   true,
		Details: map[string]any{"ordered": ordered, "total": total},
	}
}

// InvalidInput creates a new AppError for an invalid caller-supplied value.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Fatal: true, Details: details,
	}
}

// Validation creates a new AppError for struct validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message, Fatal: true}
}

// NotFound creates a new AppError for a missing task or file.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("%s %q not found", resource, id),
		Fatal: true, Details: details,
	}
}

// SpawnFailed creates the error for a command that could not be started.
func SpawnFailed(cmd string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSpawnFailed, Message: "error while executing command",
		Details: map[string]any{"cmd": cmd}, Cause: cause,
	}
}

// ProcessFailed creates the error for a command that exited with a nonzero code.
func ProcessFailed(cmd string, retcode int) *AppError {
	return &AppError{
		Code: ErrCodeProcessFailed, Message: fmt.Sprintf("failed with return code %d", retcode),
		Details: map[string]any{"cmd": cmd, "retcode": retcode},
	}
}

// ProcessSignaled creates the error for a command terminated by a signal.
func ProcessSignaled(cmd string, signal int) *AppError {
	return &AppError{
		Code: ErrCodeProcessSignaled, Message: fmt.Sprintf("terminated by signal %d", signal),
		Details: map[string]any{"cmd": cmd, "signal": signal},
	}
}

// MissingInputs creates the error for consumed files absent under strict inputs.
func MissingInputs(paths []string) *AppError {
	return &AppError{
		Code: ErrCodePrecondition, Message: fmt.Sprintf("consumed files do not exist: %v", paths),
		Details: map[string]any{"paths": paths},
	}
}

// MissingOutputs creates the error for produced files absent after a successful exit.
func MissingOutputs(paths []string) *AppError {
	return &AppError{
		Code: ErrCodePostcondition, Message: fmt.Sprintf("some produced files are missing: %v", paths),
		Details: map[string]any{"paths": paths},
	}
}

// Canceled creates the error for a task stopped by run cancellation.
func Canceled(cause error) *AppError {
	return &AppError{Code: ErrCodeCanceled, Message: "task was cancelled", Cause: cause}
}

// Internal creates a new AppError for an unexpected engine failure.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: "unexpected error", Cause: cause}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
