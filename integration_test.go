package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/codebridge/catalog"
	"github.com/isdmx/codebridge/config"
	"github.com/isdmx/codebridge/logger"
	"github.com/isdmx/codebridge/provider"
	"github.com/isdmx/codebridge/sandbox"
	"github.com/isdmx/codebridge/sanitize"
	"github.com/isdmx/codebridge/validate"
	"github.com/isdmx/codebridge/worker"
)

// TestIntegrationConfigLogger tests the integration between the config and
// logger packages.
func TestIntegrationConfigLogger(t *testing.T) {
	cfg := &config.Config{
		Logging: config.LoggingConfig{
			Mode:  "development",
			Level: "debug",
		},
	}

	testLogger, err := logger.NewFromConfig(cfg)
	require.NoError(t, err)
	require.NotNil(t, testLogger)

	testLogger.Info("integration test started")
	_ = testLogger.Sync()
}

// stubToolServer builds an in-process MCP server exposing an echo tool.
func stubToolServer() *server.MCPServer {
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

	return srv
}

// fullPipeline wires every real component together over in-memory streams
// and an in-process tool server, then runs the given input through it.
func fullPipeline(t *testing.T, input string) []worker.Response {
	t.Helper()

	log := zaptest.NewLogger(t)
	srv := stubToolServer()

	p := provider.NewMCPProvider(func() (mcpclient.MCPClient, error) {
		c, err := mcpclient.NewInProcessClient(srv)
		if err != nil {
			return nil, err
		}
		if err := c.Start(context.Background()); err != nil {
			return nil, err
		}
		return c, nil
	}, log)
	manager := provider.NewManager(p, log)
	t.Cleanup(func() { _ = manager.Close() })

	cat, err := catalog.FromTools([]catalog.Tool{
		{Name: "echo", Description: "Echo the arguments back", Category: "diagnostics"},
	})
	require.NoError(t, err)

	sanitizer := sanitize.New()
	exec := sandbox.NewGojaExecutor(manager, cat, sanitizer, log, sandbox.WithSettleDelay(0))

	out := &bytes.Buffer{}
	w := worker.New(strings.NewReader(input), out,
		validate.New(validate.DefaultPolicy()), sanitizer, manager, exec, log)

	require.NoError(t, w.Run(context.Background()))

	var resps []worker.Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp worker.Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp), "line: %s", line)
		resps = append(resps, resp)
	}
	return resps
}

func TestIntegrationEndToEnd(t *testing.T) {
	t.Run("ArithmeticRoundTrip", func(t *testing.T) {
		resps := fullPipeline(t, `{"code":"return 1+1"}`+"\n")
		require.Len(t, resps, 1)
		assert.False(t, resps[0].Error)
		assert.Equal(t, float64(2), *resps[0].Data)
	})

	t.Run("RawLiteral", func(t *testing.T) {
		resps := fullPipeline(t, "return 5\n")
		require.Len(t, resps, 1)
		assert.False(t, resps[0].Error)
		assert.Equal(t, float64(5), *resps[0].Data)
	})

	t.Run("ToolRoundTripThroughProvider", func(t *testing.T) {
		resps := fullPipeline(t, `{"code":"return invokeTool('echo', {x: 1}).x"}`+"\n")
		require.Len(t, resps, 1)
		require.False(t, resps[0].Error, "message: %s", resps[0].Message)
		assert.Equal(t, float64(1), *resps[0].Data)
	})

	t.Run("MixedBatchKeepsOrder", func(t *testing.T) {
		input := `{"code":"return 'first'","requestId":"1"}
{"code":"return process.env","requestId":"2"}
{"code":"throw new Error('third failed')","requestId":"3"}
{"code":"return invokeTool('echo', {n: 4}).n","requestId":"4"}
`
		resps := fullPipeline(t, input)
		require.Len(t, resps, 4)

		assert.False(t, resps[0].Error)
		assert.Equal(t, "first", *resps[0].Data)

		assert.True(t, resps[1].Error)
		assert.Equal(t, "VALIDATION_ERROR", resps[1].Code)

		assert.True(t, resps[2].Error)
		assert.Equal(t, "EXECUTION_ERROR", resps[2].Code)
		assert.Contains(t, resps[2].Message, "third failed")

		assert.False(t, resps[3].Error)
		assert.Equal(t, float64(4), *resps[3].Data)

		for i, want := range []string{"1", "2", "3", "4"} {
			assert.Equal(t, want, resps[i].RequestID)
		}
	})

	t.Run("CatalogCapabilities", func(t *testing.T) {
		resps := fullPipeline(t, `{"code":"return searchTools('echo')[0].category"}`+"\n")
		require.Len(t, resps, 1)
		require.False(t, resps[0].Error)
		assert.Equal(t, "diagnostics", *resps[0].Data)
	})
}
