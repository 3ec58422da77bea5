package validate

import (
	"fmt"
	"regexp"

	"github.com/isdmx/codebridge/config"
)

// Rule is one compiled validation pattern
type Rule struct {
	Pattern *regexp.Regexp
	Message string
}

// Policy is the set of rules applied to submitted code. Deny rules block
// execution; warn rules are reported but execution proceeds. The policy is
// data, not a fixed contract: configuration may extend or replace it.
type Policy struct {
	MaxCodeBytes int
	Deny         []Rule
	Warn         []Rule
}

// Outcome is the result of checking one snippet
type Outcome struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// DefaultMaxCodeBytes caps snippet size when no configuration is given
const DefaultMaxCodeBytes = 65536

func mustRule(pattern, message string) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern), Message: message}
}

// DefaultPolicy returns the built-in rules: ambient API references,
// import forms, and process access that the capability surface does not
// grant anyway, rejected up front with a clear message.
func DefaultPolicy() Policy {
	return Policy{
		MaxCodeBytes: DefaultMaxCodeBytes,
		Deny: []Rule{
			mustRule(`\brequire\s*\(`, "require() is not available in the execution scope"),
			mustRule(`(?m)^\s*import\s`, "import statements are not allowed"),
			mustRule(`\bimport\s*\(`, "dynamic import is not allowed"),
			mustRule(`\bprocess\.`, "the process object is not available in the execution scope"),
			mustRule(`\bglobalThis\b`, "globalThis access is not allowed"),
			mustRule(`\beval\s*\(`, "eval() is not allowed"),
			mustRule(`\bnew\s+Function\s*\(`, "the Function constructor is not allowed"),
			mustRule(`\bchild_process\b`, "child_process is not available"),
			mustRule(`\bfs\s*\.`, "filesystem access is not available"),
		},
		Warn: []Rule{
			mustRule(`\bwhile\s*\(\s*true\s*\)`, "unbounded loop detected; there is no execution timeout"),
			mustRule(`\bconsole\s*\.`, "console output is discarded; return a value instead"),
		},
	}
}

// PolicyFromConfig builds a policy from configuration. Configured rules
// extend the defaults unless replace_builtin is set.
func PolicyFromConfig(cfg *config.Config) (Policy, error) {
	var policy Policy
	if cfg.Validator.ReplaceBuiltin {
		policy = Policy{}
	} else {
		policy = DefaultPolicy()
	}

	if cfg.Validator.MaxCodeBytes > 0 {
		policy.MaxCodeBytes = cfg.Validator.MaxCodeBytes
	} else if policy.MaxCodeBytes == 0 {
		policy.MaxCodeBytes = DefaultMaxCodeBytes
	}

	for _, r := range cfg.Validator.Deny {
		compiled, err := compileRule(r)
		if err != nil {
			return Policy{}, err
		}
		policy.Deny = append(policy.Deny, compiled)
	}
	for _, r := range cfg.Validator.Warn {
		compiled, err := compileRule(r)
		if err != nil {
			return Policy{}, err
		}
		policy.Warn = append(policy.Warn, compiled)
	}

	return policy, nil
}

func compileRule(r config.Rule) (Rule, error) {
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid validator pattern %q: %w", r.Pattern, err)
	}
	message := r.Message
	if message == "" {
		message = fmt.Sprintf("code matches forbidden pattern %q", r.Pattern)
	}
	return Rule{Pattern: re, Message: message}, nil
}

// Validator checks submitted code against a policy. Stateless; safe for
// concurrent use.
type Validator struct {
	policy Policy
}

// New creates a validator with the given policy
func New(policy Policy) *Validator {
	return &Validator{policy: policy}
}

// NewFromConfig creates a validator with the configured policy
func NewFromConfig(cfg *config.Config) (*Validator, error) {
	policy, err := PolicyFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return New(policy), nil
}

// Check scans the code and returns the outcome. It never executes
// anything; this is a pure text scan.
func (v *Validator) Check(code string) Outcome {
	out := Outcome{Valid: true}

	if v.policy.MaxCodeBytes > 0 && len(code) > v.policy.MaxCodeBytes {
		out.Valid = false
		out.Errors = append(out.Errors,
			fmt.Sprintf("code exceeds maximum size: %d bytes > %d bytes", len(code), v.policy.MaxCodeBytes))
	}

	for _, rule := range v.policy.Deny {
		if rule.Pattern.MatchString(code) {
			out.Valid = false
			out.Errors = append(out.Errors, rule.Message)
		}
	}

	for _, rule := range v.policy.Warn {
		if rule.Pattern.MatchString(code) {
			out.Warnings = append(out.Warnings, rule.Message)
		}
	}

	return out
}
