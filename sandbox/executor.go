package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/isdmx/codebridge/catalog"
	"github.com/isdmx/codebridge/config"
	"github.com/isdmx/codebridge/provider"
	"github.com/isdmx/codebridge/sanitize"
)

// DefaultSettleDelay is the pause after each execution before the worker
// is reused, letting in-flight side effects of capability calls finish.
const DefaultSettleDelay = 100 * time.Millisecond

// GojaExecutor runs snippets inside a fresh goja interpreter per request.
// The interpreter scope contains only the enumerated capability functions;
// there is no ambient filesystem, network, or process access.
type GojaExecutor struct {
	caller         ToolCaller
	catalog        *catalog.Catalog
	sanitizer      *sanitize.Sanitizer
	logger         *zap.Logger
	settleDelay    time.Duration
	executeTimeout time.Duration
}

// GojaExecutorOption defines a functional option for GojaExecutor
type GojaExecutorOption func(*GojaExecutor)

// WithSettleDelay sets the post-execution settle delay
func WithSettleDelay(d time.Duration) GojaExecutorOption {
	return func(e *GojaExecutor) {
		e.settleDelay = d
	}
}

// WithExecuteTimeout caps snippet run time. Zero disables the cap; the
// default preserves the no-timeout behavior and relies on the settle
// delay alone.
func WithExecuteTimeout(d time.Duration) GojaExecutorOption {
	return func(e *GojaExecutor) {
		e.executeTimeout = d
	}
}

// NewGojaExecutor creates an executor bound to a tool caller and catalog
func NewGojaExecutor(caller ToolCaller, cat *catalog.Catalog, sanitizer *sanitize.Sanitizer, logger *zap.Logger, opts ...GojaExecutorOption) *GojaExecutor {
	e := &GojaExecutor{
		caller:      caller,
		catalog:     cat,
		sanitizer:   sanitizer,
		logger:      logger,
		settleDelay: DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewExecutor creates the snippet executor from application configuration
func NewExecutor(cfg *config.Config, manager *provider.Manager, cat *catalog.Catalog, sanitizer *sanitize.Sanitizer, logger *zap.Logger) SnippetExecutor {
	return NewGojaExecutor(manager, cat, sanitizer, logger,
		WithSettleDelay(cfg.GetSettleDelay()),
		WithExecuteTimeout(cfg.GetExecuteTimeout()),
	)
}

// Execute runs one validated snippet against a fresh restricted scope.
// The snippet body is wrapped in a function so a bare `return` yields the
// result. The settle delay applies on both the success and failure paths.
func (e *GojaExecutor) Execute(ctx context.Context, req Request) Result {
	defer e.settle()

	vm := goja.New()
	caps := &capabilitySet{
		ctx:     ctx,
		caller:  e.caller,
		catalog: e.catalog,
	}
	if err := caps.install(vm); err != nil {
		return Result{Failure: &Failure{
			Kind:    KindExecution,
			Message: "failed to prepare execution scope",
		}}
	}

	if e.executeTimeout > 0 {
		timer := time.AfterFunc(e.executeTimeout, func() {
			vm.Interrupt("execution timeout")
		})
		defer timer.Stop()
	}

	value, err := vm.RunString("(function() {\n" + req.Code + "\n})()")
	if err != nil {
		return Result{Failure: e.classify(err, caps)}
	}

	data := value.Export()
	if _, err := json.Marshal(data); err != nil {
		return Result{Failure: &Failure{
			Kind:    KindExecution,
			Message: "snippet result is not serializable",
		}}
	}

	return Result{Data: data}
}

func (e *GojaExecutor) settle() {
	if e.settleDelay > 0 {
		time.Sleep(e.settleDelay)
	}
}

// classify turns an interpreter error into a structured failure. A
// capability call that failed on the transport marks the whole request a
// connection failure regardless of how the snippet handled the exception.
func (e *GojaExecutor) classify(err error, caps *capabilitySet) *Failure {
	if caps.lastCallErr != nil && provider.IsConnectionError(caps.lastCallErr) {
		return &Failure{
			Kind:    KindConnection,
			Message: e.sanitizer.Clean(caps.lastCallErr.Error()),
		}
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return &Failure{
			Kind:    KindExecution,
			Message: fmt.Sprintf("execution interrupted after %s", e.executeTimeout),
		}
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		message := ex.Error()
		if ex.Value() != nil {
			message = ex.Value().String()
		}
		failure := &Failure{
			Kind:    KindExecution,
			Message: e.sanitizer.Clean(message),
		}
		if stack := e.sanitizer.Clean(ex.String()); stack != failure.Message {
			failure.Details = map[string]any{"stack": stack}
		}
		return failure
	}

	// Compile errors and anything else the interpreter surfaces.
	return &Failure{
		Kind:    KindExecution,
		Message: e.sanitizer.Clean(err.Error()),
	}
}

// capabilitySet is the restricted function bundle injected into the
// interpreter. Rebuilt per execution; bound to the request context.
type capabilitySet struct {
	ctx         context.Context
	caller      ToolCaller
	catalog     *catalog.Catalog
	lastCallErr error
}

func (c *capabilitySet) install(vm *goja.Runtime) error {
	bindings := map[string]any{
		"invokeTool":         c.invokeTool,
		"listTools":          c.listTools,
		"searchTools":        c.searchTools,
		"getToolInfo":        c.getToolInfo,
		"getToolsInCategory": c.getToolsInCategory,
	}
	for name, fn := range bindings {
		if err := vm.Set(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// invokeTool proxies a tool call to the provider. Textual results that
// parse as JSON are returned as structured values, anything else as a
// string. A returned error is thrown as an exception inside the snippet.
func (c *capabilitySet) invokeTool(name string, args map[string]any) (any, error) {
	out, err := c.caller.Invoke(c.ctx, name, args)
	if err != nil {
		c.lastCallErr = err
		return nil, err
	}

	var decoded any
	if json.Unmarshal([]byte(out), &decoded) == nil {
		return decoded, nil
	}
	return out, nil
}

// listTools returns the static catalog, or the provider's live capability
// listing when no catalog was configured.
func (c *capabilitySet) listTools() (any, error) {
	if c.catalog.Len() > 0 {
		return toolMaps(c.catalog.List()), nil
	}

	caps, err := c.caller.ListCapabilities(c.ctx)
	if err != nil {
		c.lastCallErr = err
		return nil, err
	}
	out := make([]map[string]any, 0, len(caps))
	for _, cp := range caps {
		out = append(out, map[string]any{
			"name":        cp.Name,
			"description": cp.Description,
		})
	}
	return out, nil
}

func (c *capabilitySet) searchTools(query string) []map[string]any {
	return toolMaps(c.catalog.Search(query))
}

func (c *capabilitySet) getToolInfo(name string) (map[string]any, error) {
	tool, ok := c.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return toolMap(tool), nil
}

func (c *capabilitySet) getToolsInCategory(category string) []map[string]any {
	return toolMaps(c.catalog.InCategory(category))
}

func toolMap(t catalog.Tool) map[string]any {
	return map[string]any{
		"name":        t.Name,
		"description": t.Description,
		"category":    t.Category,
		"inputSchema": t.InputSchema,
	}
}

func toolMaps(tools []catalog.Tool) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolMap(t))
	}
	return out
}
