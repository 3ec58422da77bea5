package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// Capability describes one operation the remote provider can perform
type Capability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ToolProvider is the narrow interface the worker consumes from the
// external tool-providing service.
type ToolProvider interface {
	Connect(ctx context.Context) error
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
	ListCapabilities(ctx context.Context) ([]Capability, error)
	Ping(ctx context.Context) error
	Close() error
}

// ClientFactory produces a fresh MCP client. The provider calls it on every
// connect so that reconnection spawns a new transport instead of reusing a
// dead one.
type ClientFactory func() (mcpclient.MCPClient, error)

// StdioFactory returns a factory that spawns the given command as an MCP
// server subprocess and talks to it over stdio.
func StdioFactory(command string, env map[string]string, args ...string) ClientFactory {
	return func() (mcpclient.MCPClient, error) {
		envList := make([]string, 0, len(env))
		for k, v := range env {
			envList = append(envList, k+"="+os.ExpandEnv(v))
		}
		return mcpclient.NewStdioMCPClient(command, envList, args...)
	}
}

// MCPProvider implements ToolProvider on top of an MCP client connection
type MCPProvider struct {
	factory ClientFactory
	logger  *zap.Logger
	client  mcpclient.MCPClient
}

// NewMCPProvider creates a provider that connects through the given factory
func NewMCPProvider(factory ClientFactory, logger *zap.Logger) *MCPProvider {
	return &MCPProvider{
		factory: factory,
		logger:  logger,
	}
}

// Connect establishes a fresh client and performs the MCP initialize
// handshake. Any previous client is closed first; errors during that close
// are swallowed.
func (p *MCPProvider) Connect(ctx context.Context) error {
	if p.client != nil {
		_ = p.client.Close()
		p.client = nil
	}

	c, err := p.factory()
	if err != nil {
		return &ConnectionError{Op: "spawn client", Err: err}
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "codebridge",
		Version: "0.1.0",
	}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION

	result, err := c.Initialize(ctx, initReq)
	if err != nil {
		_ = c.Close()
		return &ConnectionError{Op: "initialize", Err: err}
	}

	p.logger.Info("tool provider connected",
		zap.String("server_name", result.ServerInfo.Name),
		zap.String("server_version", result.ServerInfo.Version),
	)

	p.client = c
	return nil
}

// Invoke calls the named remote tool and returns its textual result.
// A tool-reported failure surfaces as *InvokeError; transport failures
// surface as *ConnectionError.
func (p *MCPProvider) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	if p.client == nil {
		return "", ErrNotConnected
	}

	callReq := mcp.CallToolRequest{}
	callReq.Params.Name = name
	callReq.Params.Arguments = args

	callResult, err := p.client.CallTool(ctx, callReq)
	if err != nil {
		if IsConnectionError(err) {
			return "", &ConnectionError{Op: "call tool", Err: err}
		}
		return "", fmt.Errorf("call to %q failed: %w", name, err)
	}

	output := flattenContent(callResult.Content)
	if callResult.IsError {
		return "", &InvokeError{Tool: name, Message: output}
	}
	return output, nil
}

// ListCapabilities fetches the provider's live tool listing. This doubles
// as the cheap, side-effect-free probe used for health checking.
func (p *MCPProvider) ListCapabilities(ctx context.Context) ([]Capability, error) {
	if p.client == nil {
		return nil, ErrNotConnected
	}

	listResp, err := p.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		if IsConnectionError(err) {
			return nil, &ConnectionError{Op: "list tools", Err: err}
		}
		return nil, fmt.Errorf("list tools failed: %w", err)
	}

	caps := make([]Capability, 0, len(listResp.Tools))
	for _, t := range listResp.Tools {
		caps = append(caps, Capability{Name: t.Name, Description: t.Description})
	}
	return caps, nil
}

// Ping issues a protocol-level ping
func (p *MCPProvider) Ping(ctx context.Context) error {
	if p.client == nil {
		return ErrNotConnected
	}
	if err := p.client.Ping(ctx); err != nil {
		return &ConnectionError{Op: "ping", Err: err}
	}
	return nil
}

// Close shuts down the current client. Idempotent.
func (p *MCPProvider) Close() error {
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

// flattenContent converts MCP content items to a single string. Text items
// pass through verbatim; anything else is serialized as JSON.
func flattenContent(content []mcp.Content) string {
	var sb strings.Builder
	for i, c := range content {
		if i > 0 {
			sb.WriteString("\n")
		}
		if tc, ok := mcp.AsTextContent(c); ok {
			sb.WriteString(tc.Text)
		} else {
			data, _ := json.Marshal(c)
			sb.Write(data)
		}
	}
	return sb.String()
}
