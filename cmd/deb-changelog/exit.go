package main

import (
	"errors"
	"fmt"

	"github.com/etnz/deb-changelog/changelog"
)

// Exit codes of the command.
const (
	ExitSuccess = 0
	// ExitFailure covers lint errors and any failed operation.
	ExitFailure = 1
	// ExitParseError is returned when a changelog cannot be parsed.
	ExitParseError = 2
	// ExitInvalidArguments is returned for usage errors.
	ExitInvalidArguments = 3
)

// ExitError carries an exit code. A nil Err means the command already
// reported the failure.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(format string, args ...any) error {
	return &ExitError{Code: ExitInvalidArguments, Err: fmt.Errorf(format, args...)}
}

func isSilent(err error) bool {
	var ee *ExitError
	return errors.As(err, &ee) && ee.Err == nil
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	var pe *changelog.ParseError
	if errors.As(err, &pe) {
		return ExitParseError
	}
	return ExitFailure
}
