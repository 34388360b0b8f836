package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a Config for structural and semantic errors. It returns
// a slice of all validation errors found (empty if valid). Disabled
// extension names are checked against known when non-nil.
func Validate(cfg *Config, known map[string]bool) []ValidationError {
	var errs []ValidationError

	if cfg.Pipeline.MaxLineLength < 0 {
		errs = append(errs, ValidationError{
			Field:   "pipeline.max_line_length",
			Message: "must not be negative",
		})
	}
	if strings.ContainsAny(cfg.Pipeline.Sentinel, " \t") {
		errs = append(errs, ValidationError{
			Field:   "pipeline.sentinel",
			Message: "must not contain whitespace",
		})
	}

	seen := make(map[string]bool)
	for i, name := range cfg.Extensions.Disabled {
		field := fmt.Sprintf("extensions.disabled[%d]", i)
		if name == "" {
			errs = append(errs, ValidationError{Field: field, Message: "must not be empty"})
			continue
		}
		if seen[name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate extension %q", name),
			})
		}
		seen[name] = true
		if known != nil && !known[name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("references unknown extension %q", name),
			})
		}
	}

	if cfg.Serve.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Serve.Addr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "serve.addr",
				Message: fmt.Sprintf("invalid listen address: %v", err),
			})
		}
	}

	return errs
}
