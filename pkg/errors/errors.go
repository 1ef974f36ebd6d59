package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes errors
type ErrorCode string

const (
	ErrCodeInput      ErrorCode = "INPUT_ERROR"
	ErrCodeOutput     ErrorCode = "OUTPUT_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeFFmpeg     ErrorCode = "FFMPEG_ERROR"
	ErrCodeConversion ErrorCode = "CONVERSION_ERROR"
)

// ErrToolNotFound signals that the external transcoding binary is missing from
// the search path. Fatal: no file in the batch can succeed without it.
var ErrToolNotFound = errors.New("transcoding tool not found in PATH")

// BatchError is the base structured error
type BatchError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *BatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *BatchError) Unwrap() error {
	return e.Cause
}

// InputError marks the input root as missing or unreadable. Fatal before any
// processing starts.
type InputError struct {
	BatchError
	Path string
}

func NewInputError(path, message string, cause error) *InputError {
	return &InputError{
		BatchError: BatchError{
			Code:    ErrCodeInput,
			Message: message,
			Cause:   cause,
		},
		Path: path,
	}
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s (path=%s)", e.BatchError.Error(), e.Path)
}

// OutputError marks the output root as uncreatable or unwritable. Fatal before
// any processing starts.
type OutputError struct {
	BatchError
	Path string
}

func NewOutputError(path, message string, cause error) *OutputError {
	return &OutputError{
		BatchError: BatchError{
			Code:    ErrCodeOutput,
			Message: message,
			Cause:   cause,
		},
		Path: path,
	}
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("%s (path=%s)", e.BatchError.Error(), e.Path)
}

// ValidationError represents a rejected input value, typically a speed entry
type ValidationError struct {
	BatchError
	Field string
	Value interface{}
}

func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		BatchError: BatchError{
			Code:    ErrCodeValidation,
			Message: message,
		},
		Field: field,
		Value: value,
	}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] field=%s value=%v: %s", e.Code, e.Field, e.Value, e.Message)
}

// FFmpegError represents a single failed ffmpeg invocation
type FFmpegError struct {
	BatchError
	Args     []string
	ExitCode int
	Stderr   string
}

func NewFFmpegError(message string, args []string, exitCode int, stderr string, cause error) *FFmpegError {
	return &FFmpegError{
		BatchError: BatchError{
			Code:    ErrCodeFFmpeg,
			Message: message,
			Cause:   cause,
		},
		Args:     args,
		ExitCode: exitCode,
		Stderr:   stderr,
	}
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("[%s] %s (exit=%d, stderr=%q): %v",
		e.Code, e.Message, e.ExitCode, truncate(e.Stderr, 200), e.Cause)
}

// ConversionError reports that every strategy in the fallback chain failed for
// one file. Recorded per file; never aborts the batch.
type ConversionError struct {
	BatchError
	InputPath  string
	Strategies []string
}

func NewConversionError(inputPath string, strategies []string, cause error) *ConversionError {
	return &ConversionError{
		BatchError: BatchError{
			Code:    ErrCodeConversion,
			Message: "all conversion strategies failed",
			Cause:   cause,
		},
		InputPath:  inputPath,
		Strategies: strategies,
	}
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s (file=%s, tried=%d)", e.BatchError.Error(), e.InputPath, len(e.Strategies))
}

// Is enables errors.Is checks
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As enables errors.As checks
func As[T error](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
