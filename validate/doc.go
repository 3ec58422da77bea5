// Package validate provides static, pre-execution code validation.
//
// The validate package scans submitted snippets against a policy of
// forbidden and suspicious patterns before they reach the execution
// sandbox. Deny matches block execution entirely; warn matches are logged
// and execution proceeds. The pattern list is configuration data, not a
// fixed contract.
package validate
