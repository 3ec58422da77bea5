package worker

import (
	"encoding/json"
	"strings"
)

// Request is one parsed input line. Lines are either a JSON object with a
// code field or raw literal code (legacy fallback).
type Request struct {
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// Response is the single JSON line written per processed request.
// error=false responses carry data; error=true responses carry a
// sanitized message and a code classifying the failure kind.
type Response struct {
	Error     bool           `json:"error"`
	Data      *any           `json:"data,omitempty"`
	Message   string         `json:"message,omitempty"`
	Code      string         `json:"code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

// successResponse wraps a snippet result. Data is always present on
// success lines, even when the value itself is null or zero.
func successResponse(data any, requestID string) Response {
	return Response{
		Data:      &data,
		RequestID: requestID,
	}
}

// failureResponse builds an error line
func failureResponse(code, message string, details map[string]any, requestID string) Response {
	return Response{
		Error:     true,
		Message:   message,
		Code:      code,
		Details:   details,
		RequestID: requestID,
	}
}

// parseLine interprets one complete, non-empty input line. JSON objects
// with a code field take priority; anything that does not parse is
// treated verbatim as code.
func parseLine(line string) Request {
	trimmed := strings.TrimSpace(line)

	if strings.HasPrefix(trimmed, "{") {
		var req Request
		if err := json.Unmarshal([]byte(trimmed), &req); err == nil {
			return req
		}
	}

	return Request{Code: trimmed}
}
