package server

import (
	"errors"

	"github.com/localrivet/chatcycle/internal/archive"
	"github.com/localrivet/chatcycle/internal/errortypes"
	"github.com/localrivet/chatcycle/internal/tools"
)

// Error codes returned in tools.ToolError.Code
const (
	ErrorCodeEmptyInput   = "EMPTY_INPUT"
	ErrorCodeNetwork      = "NETWORK_ERROR"
	ErrorCodeRemoteStatus = "REMOTE_STATUS"
	ErrorCodePayloadShape = "PAYLOAD_SHAPE"
	ErrorCodeChunkFailure = "CHUNK_FAILURE"
	ErrorCodeValidation   = "VALIDATION_ERROR"
	ErrorCodeNotFound     = "NOT_FOUND"
	ErrorCodeDatabase     = "DATABASE_ERROR"
	ErrorCodeConfig       = "CONFIG_ERROR"
	ErrorCodeInternal     = "INTERNAL_ERROR"
	ErrorCodeUnknown      = "UNKNOWN_ERROR"
)

// DetailReason names the underlying failure kind of a chunk failure.
const DetailReason = "reason"

var codeByType = map[errortypes.ErrorType]string{
	errortypes.ErrorTypeEmptyInput:   ErrorCodeEmptyInput,
	errortypes.ErrorTypeNetwork:      ErrorCodeNetwork,
	errortypes.ErrorTypeRemoteStatus: ErrorCodeRemoteStatus,
	errortypes.ErrorTypePayloadShape: ErrorCodePayloadShape,
	errortypes.ErrorTypeChunkFailure: ErrorCodeChunkFailure,
	errortypes.ErrorTypeValidation:   ErrorCodeValidation,
	errortypes.ErrorTypeDatabase:     ErrorCodeDatabase,
	errortypes.ErrorTypeConfig:       ErrorCodeConfig,
	errortypes.ErrorTypeInternal:     ErrorCodeInternal,
}

// errorToResponse converts an error to the ToolError sent to MCP clients.
func errorToResponse(err error) *tools.ToolError {
	if err == nil {
		return nil
	}

	code := ErrorCodeUnknown
	if c, ok := codeByType[errortypes.TypeOf(err)]; ok {
		code = c
	}
	if errors.Is(err, archive.ErrNotFound) {
		code = ErrorCodeNotFound
	}

	details := collectFields(err)
	if errortypes.IsChunkFailureError(err) {
		if details == nil {
			details = make(map[string]interface{})
		}
		details[DetailReason] = string(errortypes.CauseType(err))
	}

	return &tools.ToolError{
		Code:    code,
		Message: err.Error(),
		Details: details,
	}
}

// collectFields merges the fields of every AppError in err's chain. Outer
// errors win on key conflicts.
func collectFields(err error) map[string]interface{} {
	var details map[string]interface{}
	for err != nil {
		if appErr, ok := err.(*errortypes.AppError); ok {
			for k, v := range appErr.Fields {
				if details == nil {
					details = make(map[string]interface{})
				}
				if _, exists := details[k]; !exists {
					details[k] = v
				}
			}
		}
		err = errors.Unwrap(err)
	}
	return details
}
