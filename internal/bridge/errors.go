package bridge

import (
	"errors"
	"net/http"
)

// Failure sentinels for everything a Submit call can report. Callers branch
// with errors.Is; message text is for logs only.
var (
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidAction   = errors.New("unrecognized action")
	ErrInvalidDistance = errors.New("distance must be greater than zero")
	ErrNotReady        = errors.New("bridge is still initializing")
	ErrBusy            = errors.New("bridge queue is full")
	ErrAgentTimeout    = errors.New("remote agent did not reply in time")
	ErrInvalidResponse = errors.New("remote agent reply failed normalization")
	ErrAgentCompute    = errors.New("remote agent computation failed")
)

// Kind returns the stable machine-readable error code for err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingField):
		return "MISSING_FIELD"
	case errors.Is(err, ErrInvalidAction):
		return "INVALID_ACTION"
	case errors.Is(err, ErrInvalidDistance):
		return "INVALID_DISTANCE"
	case errors.Is(err, ErrNotReady):
		return "BRIDGE_NOT_READY"
	case errors.Is(err, ErrBusy):
		return "BRIDGE_BUSY"
	case errors.Is(err, ErrAgentTimeout):
		return "AGENT_TIMEOUT"
	case errors.Is(err, ErrInvalidResponse):
		return "INVALID_RESPONSE"
	case errors.Is(err, ErrAgentCompute):
		return "AGENT_COMPUTE_FAILED"
	default:
		return "INTERNAL"
	}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMissingField):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidAction), errors.Is(err, ErrInvalidDistance):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrAgentTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrInvalidResponse), errors.Is(err, ErrAgentCompute):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
