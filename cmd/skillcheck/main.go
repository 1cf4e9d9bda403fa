package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // Run completed, every item succeeded
	ExitEvalFailed = 1 // Run completed, one or more evaluation items failed
	ExitError      = 2 // Configuration or runtime error
)

// EvalFailureError indicates that the command itself ran to completion,
// but one or more evaluation items failed.
type EvalFailureError struct {
	Message string
}

func (e *EvalFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var evalFailureErr *EvalFailureError
		if errors.As(err, &evalFailureErr) {
			os.Exit(ExitEvalFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
