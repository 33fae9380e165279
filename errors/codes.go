package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Construction-time errors (fatal)
const (
	// ErrCodeConfiguration indicates a defect in how the graph was declared,
	// such as two different tasks producing the same file.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeCycleDetected indicates the task graph contains a cycle.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"
	// ErrCodeInvalidInput indicates a malformed value supplied by the caller.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNotFound indicates a referenced task or file does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Run-time task errors (local to one task)
const (
	// ErrCodeSpawnFailed indicates the command could not be started.
	ErrCodeSpawnFailed ErrorCode = "SPAWN_FAILED"
	// ErrCodeProcessFailed indicates the command exited with a nonzero code.
	ErrCodeProcessFailed ErrorCode = "PROCESS_FAILED"
	// ErrCodeProcessSignaled indicates the command was terminated by a signal.
	ErrCodeProcessSignaled ErrorCode = "PROCESS_SIGNALED"
	// ErrCodePrecondition indicates a consumed file was missing under strict inputs.
	ErrCodePrecondition ErrorCode = "PRECONDITION_FAILED"
	// ErrCodePostcondition indicates a produced file was missing after a successful exit.
	ErrCodePostcondition ErrorCode = "POSTCONDITION_FAILED"
	// ErrCodeCanceled indicates the run was canceled before or during the task.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// ErrCodeInternal indicates an unexpected failure inside the engine.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

var fatalCodes = map[ErrorCode]bool{
	ErrCodeConfiguration: true,
	ErrCodeCycleDetected: true,
	ErrCodeInvalidInput:  true,
	ErrCodeNotFound:      true,
}

// IsFatalCode reports whether the code belongs to a construction-time error
// that must stop the program before any task runs.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}
