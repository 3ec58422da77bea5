package provider

import (
	"context"
	"encoding/json"
	"testing"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newStubServer builds an in-process MCP server with an echo tool and a
// tool that always reports failure.
func newStubServer() *server.MCPServer {
	srv := server.NewMCPServer("stub-tools", "0.0.1")

	echo := mcp.Tool{
		Name:        "echo",
		Description: "Echo the arguments back",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"x": map[string]any{"type": "number"},
			},
		},
	}
	srv.AddTool(echo, func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(req.GetArguments())
		if err != nil {
			return nil, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{Type: "text", Text: string(data)},
			},
		}, nil
	})

	explode := mcp.Tool{
		Name:        "explode",
		Description: "Always fails",
		InputSchema: mcp.ToolInputSchema{Type: "object"},
	}
	srv.AddTool(explode, func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{Type: "text", Text: "boom"},
			},
			IsError: true,
		}, nil
	})

	return srv
}

// inProcessFactory returns a ClientFactory wired to an in-process server,
// so the MCP provider can be exercised without spawning a subprocess.
func inProcessFactory(srv *server.MCPServer) ClientFactory {
	return func() (mcpclient.MCPClient, error) {
		c, err := mcpclient.NewInProcessClient(srv)
		if err != nil {
			return nil, err
		}
		if err := c.Start(context.Background()); err != nil {
			return nil, err
		}
		return c, nil
	}
}

func TestMCPProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("OperationsBeforeConnect", func(t *testing.T) {
		p := NewMCPProvider(inProcessFactory(newStubServer()), zaptest.NewLogger(t))
		_, err := p.Invoke(ctx, "echo", nil)
		assert.ErrorIs(t, err, ErrNotConnected)
		_, err = p.ListCapabilities(ctx)
		assert.ErrorIs(t, err, ErrNotConnected)
		assert.ErrorIs(t, p.Ping(ctx), ErrNotConnected)
	})

	t.Run("ConnectAndPing", func(t *testing.T) {
		p := NewMCPProvider(inProcessFactory(newStubServer()), zaptest.NewLogger(t))
		require.NoError(t, p.Connect(ctx))
		defer p.Close()

		assert.NoError(t, p.Ping(ctx))
	})

	t.Run("InvokeRoundTrip", func(t *testing.T) {
		p := NewMCPProvider(inProcessFactory(newStubServer()), zaptest.NewLogger(t))
		require.NoError(t, p.Connect(ctx))
		defer p.Close()

		out, err := p.Invoke(ctx, "echo", map[string]any{"x": 1})
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &decoded))
		assert.Equal(t, float64(1), decoded["x"])
	})

	t.Run("ListCapabilities", func(t *testing.T) {
		p := NewMCPProvider(inProcessFactory(newStubServer()), zaptest.NewLogger(t))
		require.NoError(t, p.Connect(ctx))
		defer p.Close()

		caps, err := p.ListCapabilities(ctx)
		require.NoError(t, err)

		names := make([]string, 0, len(caps))
		for _, c := range caps {
			names = append(names, c.Name)
		}
		assert.Contains(t, names, "echo")
		assert.Contains(t, names, "explode")
	})

	t.Run("ToolFailureIsInvokeError", func(t *testing.T) {
		p := NewMCPProvider(inProcessFactory(newStubServer()), zaptest.NewLogger(t))
		require.NoError(t, p.Connect(ctx))
		defer p.Close()

		_, err := p.Invoke(ctx, "explode", nil)
		require.Error(t, err)

		var ie *InvokeError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, "explode", ie.Tool)
		assert.Contains(t, ie.Message, "boom")
		assert.False(t, IsConnectionError(err))
	})

	t.Run("CloseIdempotent", func(t *testing.T) {
		p := NewMCPProvider(inProcessFactory(newStubServer()), zaptest.NewLogger(t))
		require.NoError(t, p.Connect(ctx))
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())
	})

	t.Run("ReconnectAfterClose", func(t *testing.T) {
		p := NewMCPProvider(inProcessFactory(newStubServer()), zaptest.NewLogger(t))
		require.NoError(t, p.Connect(ctx))
		require.NoError(t, p.Close())

		require.NoError(t, p.Connect(ctx))
		defer p.Close()
		assert.NoError(t, p.Ping(ctx))
	})
}
