package provider

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrClosed is returned once the manager has been shut down; no further
// operations are possible.
var ErrClosed = errors.New("provider: connection manager is closed")

// ErrNotConnected is returned when an operation requires a ready
// connection and none is established.
var ErrNotConnected = errors.New("provider: not connected")

// ConnectionError wraps a transport-level failure. Callers classify
// failures with errors.As or IsConnectionError rather than by message.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("provider: %s failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// InvokeError is raised when the tool provider reports a failed tool
// call. It is distinguishable from transport failures: the connection is
// still healthy, the remote operation itself failed.
type InvokeError struct {
	Tool    string
	Message string
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("provider: tool %q failed: %s", e.Tool, e.Message)
}

// connectionIndicators are substrings matched against untyped transport
// errors. The mcp-go stdio transport does not expose a typed error
// hierarchy, so text matching remains as a fallback behind the typed
// ConnectionError check.
var connectionIndicators = []string{
	"connection",
	"socket",
	"broken pipe",
	"reset by peer",
	"closed pipe",
	"transport",
	"process exited",
	"file already closed",
	"eof",
}

// IsConnectionError reports whether err indicates a lost or unusable
// connection to the tool provider.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return true
	}
	var ie *InvokeError
	if errors.As(err, &ie) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, indicator := range connectionIndicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
