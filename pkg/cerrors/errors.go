package cerrors

import (
	"encoding/json"
	"errors"

	"github.com/palantir/stacktrace"
)

type ErrorType string

const (
	ErrorTypeNonUserFriendly  ErrorType = "NON_USER_FRIENDLY_ERROR"
	ErrorTypeGeneric          ErrorType = "GENERIC_ERROR"
	ErrorTypeSpecification    ErrorType = "SPECIFICATION_ERROR"
	ErrorTypeConfiguration    ErrorType = "CONFIGURATION_ERROR"
	ErrorTypeExecution        ErrorType = "EXECUTION_ERROR"
	ErrorTypeTransport        ErrorType = "TRANSPORT_ERROR"
	ErrorTypeTargetSelection  ErrorType = "TARGET_SELECTION_ERROR"
	ErrorTypeTimeout          ErrorType = "TIMEOUT_ERROR"
	ErrorTypeChaosInject      ErrorType = "CHAOS_INJECT_ERROR"
	ErrorTypeChaosRevert      ErrorType = "CHAOS_REVERT_ERROR"
	ErrorTypeEventPublication ErrorType = "EVENT_PUBLICATION_ERROR"
)

type userFriendly interface {
	UserFriendly() bool
	ErrorType() ErrorType
}

// IsUserFriendly returns true if err is marked as safe to present to the caller
func IsUserFriendly(err error) bool {
	ufe, ok := err.(userFriendly)
	return ok && ufe.UserFriendly()
}

// GetErrorType returns the type of error if the error is user-friendly
func GetErrorType(err error) ErrorType {
	if ufe, ok := err.(userFriendly); ok {
		return ufe.ErrorType()
	}
	return ErrorTypeNonUserFriendly
}

func GetRootCauseAndErrorCode(err error) (string, ErrorType) {
	rootCause := stacktrace.RootCause(err)
	errorType := GetErrorType(rootCause)
	if !IsUserFriendly(rootCause) {
		return err.Error(), errorType
	}
	return rootCause.Error(), errorType
}

// IsNoTargets reports whether err, or the root cause behind its propagation chain,
// is a NoTargetsIdentified error
func IsNoTargets(err error) bool {
	var target NoTargetsIdentified
	return errors.As(stacktrace.RootCause(err), &target)
}

// AsExecution extracts the Execution error behind err, if any
func AsExecution(err error) (Execution, bool) {
	var target Execution
	ok := errors.As(stacktrace.RootCause(err), &target)
	return target, ok
}

// Error is the generic json rendered error used at client and transport boundaries
type Error struct {
	ErrorCode ErrorType `json:"errorCode"`
	Phase     string    `json:"phase,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Target    string    `json:"target,omitempty"`
}

func (e Error) Error() string {
	b, err := json.Marshal(e)
	if err != nil {
		return e.Reason
	}
	return string(b)
}

func (e Error) UserFriendly() bool {
	return true
}

func (e Error) ErrorType() ErrorType {
	return e.ErrorCode
}
