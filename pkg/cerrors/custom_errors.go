package cerrors

import (
	"fmt"
	"strings"
)

// Specification is raised before any remote call when a fault specification
// is incomplete or cannot be resolved. It is never retried.
type Specification struct {
	Target string
	Reason string
}

func (e Specification) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("invalid fault specification, %s", e.Reason)
	}
	return fmt.Sprintf("invalid fault specification for '%s', %s", e.Target, e.Reason)
}

func (e Specification) UserFriendly() bool {
	return true
}

func (e Specification) ErrorType() ErrorType {
	return ErrorTypeSpecification
}

// Configuration marks a wiring problem, such as an unregistered builder
type Configuration struct {
	Reason string
}

func (e Configuration) Error() string {
	return fmt.Sprintf("configuration error, %s", e.Reason)
}

func (e Configuration) UserFriendly() bool {
	return true
}

func (e Configuration) ErrorType() ErrorType {
	return ErrorTypeConfiguration
}

// Execution is the terminal failure of one command once its attempts are exhausted
type Execution struct {
	Index       int
	Command     string
	Attempts    int
	ExitCode    int
	Reason      string
	Explanation string
}

func (e Execution) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "command #%d '%s' failed after %d attempt(s)", e.Index, e.Command, e.Attempts)
	if e.Reason != "" {
		fmt.Fprintf(&b, ", %s", e.Reason)
	}
	if e.Explanation != "" {
		fmt.Fprintf(&b, ", known failure: %s", e.Explanation)
	}
	return b.String()
}

func (e Execution) UserFriendly() bool {
	return true
}

func (e Execution) ErrorType() ErrorType {
	return ErrorTypeExecution
}

// Transport wraps failures raised by an executor or endpoint client
type Transport struct {
	Target string
	Reason string
}

func (e Transport) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("transport failure, %s", e.Reason)
	}
	return fmt.Sprintf("transport failure on '%s', %s", e.Target, e.Reason)
}

func (e Transport) UserFriendly() bool {
	return true
}

func (e Transport) ErrorType() ErrorType {
	return ErrorTypeTransport
}

// NoTargetsIdentified is raised when a group or cluster trigger resolves to nothing
type NoTargetsIdentified struct {
	Target string
	Reason string
}

func (e NoTargetsIdentified) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("no targets identified, %s", e.Reason)
	}
	return fmt.Sprintf("no targets identified for '%s', %s", e.Target, e.Reason)
}

func (e NoTargetsIdentified) UserFriendly() bool {
	return true
}

func (e NoTargetsIdentified) ErrorType() ErrorType {
	return ErrorTypeTargetSelection
}
