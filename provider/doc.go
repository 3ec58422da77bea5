// Package provider manages the persistent connection to the external
// tool-providing service.
//
// The package defines the narrow ToolProvider interface the worker
// consumes (connect, invoke, list capabilities, ping, close), an MCP
// implementation backed by the mark3labs/mcp-go client, and the Manager
// that owns connection lifecycle: health probing, reconnection after
// failures, and the uninitialized → initializing → ready → degraded →
// closed state machine. No other component may drive the connection
// lifecycle directly.
package provider
