// Package sandbox provides restricted snippet execution.
//
// The sandbox package runs untrusted JavaScript snippets inside a fresh
// goja interpreter per request. The interpreter scope exposes only the
// capability set (invokeTool, listTools, searchTools, getToolInfo,
// getToolsInCategory) bound to the managed provider connection and the
// static tool catalog. Snippets have no ambient filesystem, network, or
// process access.
//
// Usage:
//
//	exec := sandbox.NewGojaExecutor(manager, cat, sanitizer, logger)
//	result := exec.Execute(ctx, sandbox.Request{Code: "return 1 + 1"})
package sandbox
