// Package config provides application configuration management.
//
// The config package handles loading and validation of the worker's
// configuration from YAML files. It covers the tool provider connection,
// the request loop timing knobs, the validation policy, the error
// sanitizer, and logging.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Provider command: %s\n", cfg.Provider.Command)
package config
