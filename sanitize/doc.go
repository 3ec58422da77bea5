// Package sanitize strips sensitive substrings from outbound text.
//
// Error messages and stack traces produced during snippet execution can
// contain absolute filesystem paths and credential-like tokens. The
// sanitizer rewrites them before any message leaves the worker process.
package sanitize
