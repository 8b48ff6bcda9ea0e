package cmd

import (
	"errors"
	"fmt"

	"github.com/skiffhq/skiff/pkg/s3"
)

// Process exit codes. Scripts depend on these staying stable.
const (
	ExitOK                 = 0
	ExitGeneral            = 1
	ExitInvalidArgument    = 2
	ExitFileNotFound       = 3
	ExitFileWriteError     = 4
	ExitObjectNotFound     = 5
	ExitAccessDenied       = 6
	ExitServiceUnavailable = 7
)

// CodedError carries a process exit code alongside the failure.
type CodedError struct {
	Code    int
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CodedError) Unwrap() error {
	return e.Err
}

// exitError creates an error that makes the CLI exit with the given code.
func exitError(code int, message string, err error) error {
	return &CodedError{Code: code, Message: message, Err: err}
}

// storageError classifies a storage failure into an exit code.
func storageError(message string, err error) error {
	switch {
	case s3.IsNotFound(err):
		return exitError(ExitObjectNotFound, message, err)
	case s3.IsAccessDenied(err):
		return exitError(ExitAccessDenied, message, err)
	case s3.IsInvalidRequest(err), s3.IsClientError(err):
		return exitError(ExitInvalidArgument, message, err)
	case s3.IsServerError(err):
		return exitError(ExitServiceUnavailable, message, err)
	default:
		return exitError(ExitGeneral, message, err)
	}
}

// ExitCode extracts the exit code from err. nil maps to ExitOK and
// uncoded errors to ExitGeneral.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ExitGeneral
}
