// Package errors provides sentinel errors and custom error types for the prstack application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	// ErrDirtyWorkingTree indicates that the working tree has uncommitted changes
	ErrDirtyWorkingTree = errors.New("working directory is not clean")

	// ErrMergeCommit indicates that the stack contains a commit with more than one parent
	ErrMergeCommit = errors.New("merge commits are not supported")

	// ErrUnresolvableRef indicates that a ref could not be resolved to a commit
	ErrUnresolvableRef = errors.New("unable to resolve ref")

	// ErrDuplicatePullRequests indicates that a commit id maps to more than one open pull request
	ErrDuplicatePullRequests = errors.New("multiple open pull requests for a commit")

	// ErrBehindTarget indicates that the local stack is missing commits from the target ref
	ErrBehindTarget = errors.New("stack is behind the target ref")

	// ErrNothingToMerge indicates that no prefix of the stack is mergeable
	ErrNothingToMerge = errors.New("nothing to merge")

	// ErrEmptyStack indicates that there are no commits between the target ref and the local object
	ErrEmptyStack = errors.New("stack is empty")

	// ErrPushRejected indicates that the remote rejected an atomic push
	ErrPushRejected = errors.New("push rejected")

	// ErrMissingCommitIDs indicates that commits lack a commit-id trailer and history was not rewritten
	ErrMissingCommitIDs = errors.New("commits have no commit id")

	// ErrUnrelatedHistory indicates that the stack does not descend from the target ref
	ErrUnrelatedHistory = errors.New("stack does not share history with the target ref")

	// ErrDetachedStack indicates that history cannot be rewritten because the local object is not HEAD
	ErrDetachedStack = errors.New("local object is not checked out")
)

// PreconditionError is a fatal, non-retried failure that is reported to the user verbatim.
type PreconditionError struct {
	Err     error
	Message string
}

func (e *PreconditionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// NewPreconditionError creates a new PreconditionError tagged with a sentinel
func NewPreconditionError(sentinel error, format string, args ...interface{}) *PreconditionError {
	return &PreconditionError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// HostAPIError carries the message the review host returned for a failed request
type HostAPIError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *HostAPIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (HTTP %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

func (e *HostAPIError) Unwrap() error {
	return e.Err
}

// NewHostAPIError creates a new HostAPIError
func NewHostAPIError(operation string, statusCode int, message string, err error) *HostAPIError {
	return &HostAPIError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// Warning is a recoverable outcome: the operation stopped without doing anything
// wrong, and the user needs to act (rebase, wait for review) before retrying.
type Warning struct {
	Err     error
	Message string
}

func (e *Warning) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *Warning) Unwrap() error {
	return e.Err
}

// NewWarning creates a new Warning tagged with a sentinel
func NewWarning(sentinel error, format string, args ...interface{}) *Warning {
	return &Warning{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsWarning reports whether err is (or wraps) a Warning
func IsWarning(err error) bool {
	var w *Warning
	return errors.As(err, &w)
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}
