// Package logger provides structured logging capabilities.
//
// The logger package sets up and configures the application's logging
// system using zap. Logs are always directed to stderr because the
// worker's stdout is reserved for the line-delimited response protocol.
package logger
