package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// RepositoryAccess indicates a VCS command failed (bad ref, checkout failure)
	RepositoryAccess ErrorCode = "REPOSITORY_ACCESS"
	// DiffParse indicates malformed diff text
	DiffParse ErrorCode = "DIFF_PARSE"
	// StructuralAnalysis indicates a file could not be read or parsed at a snapshot
	StructuralAnalysis ErrorCode = "STRUCTURAL_ANALYSIS"
	// StoreFailure indicates a connection or storage failure
	StoreFailure ErrorCode = "STORE_FAILURE"
	// Conflict indicates a uniqueness violation, e.g. a revision recorded twice
	Conflict ErrorCode = "CONFLICT"
	// Cancelled indicates the run was cancelled between revisions
	Cancelled ErrorCode = "CANCELLED"
	// InvalidConfig indicates a bad configuration value or flag
	InvalidConfig ErrorCode = "INVALID_CONFIG"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration value
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
}

// MinerError represents a bugminer error with code, message, and suggestions
type MinerError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewMinerError creates a new MinerError
func NewMinerError(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *MinerError {
	return &MinerError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *MinerError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *MinerError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a MinerError with the same code.
// This lets callers match on a code with errors.Is(err, &MinerError{Code: Conflict}).
func (e *MinerError) Is(target error) bool {
	t, ok := target.(*MinerError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// WithDetails adds details to the error
func (e *MinerError) WithDetails(details interface{}) *MinerError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first MinerError in err's chain,
// or InternalError when there is none.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var me *MinerError
	if stderrors.As(err, &me) {
		return me.Code
	}
	return InternalError
}

// IsRecoverable reports whether err may be handled locally without aborting a run.
// Only structural analysis failures qualify: they degrade a single file.
func IsRecoverable(err error) bool {
	return CodeOf(err) == StructuralAnalysis
}

// IsStoreError reports whether err originates in the fact store.
func IsStoreError(err error) bool {
	switch CodeOf(err) {
	case StoreFailure, Conflict:
		return true
	}
	return false
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	RepositoryAccess: {
		{
			Type:        RunCommand,
			Command:     "git status",
			Safe:        true,
			Description: "Verify the path is a git repository with a clean work tree",
		},
	},
	Conflict: {
		{
			Type:        RunCommand,
			Command:     "bugminer report <database> --view frequently-changed",
			Safe:        true,
			Description: "Inspect what is already recorded; re-runs skip known revisions",
		},
	},
	InvalidConfig: {
		{
			Type:        RunCommand,
			Command:     "bugminer config show",
			Safe:        true,
			Description: "Show the effective configuration",
		},
		{
			Type:        EditConfig,
			Description: "Fix the value in .bugminer/config.json or the BUGMINER_* environment",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
