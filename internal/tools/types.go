package tools

import "errors"

// ErrUnknownTool indicates a dispatch against a tool name that is not in
// the registry. Unlike argument or handler faults, this is fatal: the
// model was offered a fixed tool list, so an unknown name means the
// request was corrupted somewhere between model and dispatcher.
var ErrUnknownTool = errors.New("unknown tool")

// Error type identifiers surfaced to the model in result strings.
const (
	ErrTypeInvalidArguments = "InvalidArguments"
	ErrTypeExecutionFault   = "ToolExecutionFault"
)

// ToolError defines a structured error format for model consumption.
// It lets tools name the failure class so the model can correct itself,
// e.g. retry with fixed arguments after an InvalidArguments result.
type ToolError struct {
	ErrorType string `json:"error_type"` // e.g. "InvalidArguments", "ToolExecutionFault"
	Message   string `json:"message"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e == nil {
		return "<nil ToolError>"
	}
	if e.ErrorType == "" {
		return e.Message
	}
	if e.Message == "" {
		return e.ErrorType
	}
	return e.ErrorType + ": " + e.Message
}

// invalidArguments formats an argument fault as a result string.
func invalidArguments(msg string) string {
	return (&ToolError{ErrorType: ErrTypeInvalidArguments, Message: msg}).Error()
}

// executionFault formats a handler fault as a result string.
func executionFault(msg string) string {
	return (&ToolError{ErrorType: ErrTypeExecutionFault, Message: msg}).Error()
}
