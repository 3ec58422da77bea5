package sandbox

import (
	"context"
	"fmt"

	"github.com/isdmx/codebridge/provider"
)

// Kind classifies an execution failure. The values double as the "code"
// field of the wire protocol's error responses.
type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR"
	KindConnection Kind = "CONNECTION_ERROR"
	KindExecution  Kind = "EXECUTION_ERROR"
	KindProtocol   Kind = "PROTOCOL_ERROR"
)

// Request represents one snippet to execute. Created per input line and
// discarded after the response is written.
type Request struct {
	Code      string
	RequestID string
}

// Failure is a structured execution failure with a sanitized message
type Failure struct {
	Kind    Kind
	Message string
	Details map[string]any
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Result is the outcome of executing one snippet: either Data or Failure
// is set, never both.
type Result struct {
	Data    any
	Failure *Failure
}

// SnippetExecutor defines the interface for snippet execution
type SnippetExecutor interface {
	Execute(ctx context.Context, req Request) Result
}

// ToolCaller is the slice of the connection manager the capability set
// binds to. Lifecycle methods are deliberately absent: executed snippets
// must never drive the connection.
type ToolCaller interface {
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
	ListCapabilities(ctx context.Context) ([]provider.Capability, error)
}
