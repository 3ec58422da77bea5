// Package worker implements the request loop over the line-delimited
// stdin/stdout protocol.
//
// Each input line is either a JSON object with a code field or raw
// literal code. The worker validates the code, ensures the provider
// connection is ready, executes the snippet in the sandbox, and writes
// exactly one newline-terminated JSON response per input line, in arrival
// order. No failure of any kind terminates the loop except an
// unrecoverable read error on the input stream.
package worker
