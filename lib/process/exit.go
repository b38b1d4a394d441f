// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitCoder is an error that chooses its process exit code.
type ExitCoder interface {
	error
	ExitCode() int
}

// Fatal writes "error: err" to stderr and exits. The exit code is 1
// unless err wraps an ExitCoder.
func Fatal(err error) {
	os.Exit(report(os.Stderr, err))
}

func report(w io.Writer, err error) int {
	fmt.Fprintf(w, "error: %v\n", err)
	var coder ExitCoder
	if errors.As(err, &coder) && coder.ExitCode() != 0 {
		return coder.ExitCode()
	}
	return 1
}

// UsageError marks a bad command line. It exits with code 2.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }
func (e *UsageError) ExitCode() int { return 2 }

// Usage builds a UsageError from a format string.
func Usage(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}
