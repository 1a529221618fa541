package protocol

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequestType names the six operations the handler dispatches.
type RequestType string

const (
	RequestStart         RequestType = "Start"
	RequestStop          RequestType = "Stop"
	RequestList          RequestType = "List"
	RequestStatus        RequestType = "Status"
	RequestInject        RequestType = "Inject"
	RequestDaemonStatus  RequestType = "DaemonStatus"
)

// Request is the flattened superset of every request's fields; which
// fields apply is determined by Type. validator checks the
// always-present shape; Validate adds the per-type required-field checks
// a flat struct can't express as tags alone.
type Request struct {
	Type RequestType `json:"type" validate:"required,oneof=Start Stop List Status Inject DaemonStatus"`

	// Start
	Command string `json:"command,omitempty"`
	Init    string `json:"init,omitempty"`
	Name    string `json:"name,omitempty"`

	// Stop, Status, Inject
	SessionID string `json:"session_id,omitempty"`

	// List
	StatusFilter string `json:"status_filter,omitempty"`

	// Inject
	Message string `json:"message,omitempty"`
}

var validate = validator.New()

// Validate checks Request's always-present shape, then the fields
// required by its specific Type.
func (r *Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return ErrInvalidCommand()
	}

	switch r.Type {
	case RequestStart:
		if strings.TrimSpace(r.Command) == "" {
			return ErrInvalidCommand()
		}
	case RequestStop, RequestStatus, RequestInject:
		if strings.TrimSpace(r.SessionID) == "" {
			return newError(CodeSessionNotFound, "session_id is required")
		}
	}
	return nil
}

// Response is the tagged-union reply: exactly one of Data (on Success) or
// Code/Message (on Error) is populated.
type Response struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Code    Code   `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Success builds a {"type":"Success","data":...} response.
func Success(data any) Response {
	return Response{Type: "Success", Data: data}
}

// FromError builds a {"type":"Error","code":...,"message":...} response.
// Any error not already a *Error is reported as an internal failure with
// no stable wire code, which should not happen for well-formed handler
// code — every path the handler takes returns a *protocol.Error.
func FromError(err error) Response {
	if pe, ok := err.(*Error); ok {
		return Response{Type: "Error", Code: pe.Code, Message: pe.Message}
	}
	return Response{Type: "Error", Code: "", Message: err.Error()}
}

// DecodeRequest unmarshals a frame body into a validated Request.
func DecodeRequest(body []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, ErrInvalidCommand()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// EncodeResponse marshals resp for writing as a frame body.
func EncodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

// SessionInfo is the projection of a session record returned by List.
type SessionInfo struct {
	SessionID   string `json:"session_id"`
	DisplayName string `json:"display_name"`
	Command     string `json:"command"`
	Workdir     string `json:"workdir"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}
