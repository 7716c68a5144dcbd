// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateServer(cfg, errs)
	v.validateLimits(cfg, errs)
	v.validateDurations(cfg, errs)
	v.validateProjects(cfg, errs)

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateServer(cfg *Config, errs *ValidationError) {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs.Add("server.port", "must be between 0 and 65535")
	}
}

func (v *Validator) validateLimits(cfg *Config, errs *ValidationError) {
	if cfg.Logging.BufferSize < 0 {
		errs.Add("logging.buffer_size", "must not be negative")
	}
	if cfg.Events.History.MaxEvents < 0 {
		errs.Add("events.history.max_events", "must not be negative")
	}
}

func (v *Validator) validateDurations(cfg *Config, errs *ValidationError) {
	durations := []struct {
		field string
		value string
	}{
		{"supervisor.stop_timeout", cfg.Supervisor.StopTimeout},
		{"supervisor.force_grace", cfg.Supervisor.ForceGrace},
		{"events.history.max_age", cfg.Events.History.MaxAge},
		{"watch.debounce", cfg.Watch.Debounce},
	}

	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			errs.Add(d.field, fmt.Sprintf("invalid duration format: %s", err))
		} else if parsed < 0 {
			errs.Add(d.field, "must be positive")
		}
	}
}

func (v *Validator) validateProjects(cfg *Config, errs *ValidationError) {
	seenIDs := make(map[string]bool)

	for i, p := range cfg.Projects {
		prefix := fmt.Sprintf("projects[%d]", i)

		if p.ID == "" {
			errs.Add(prefix+".id", "is required")
		} else if seenIDs[p.ID] {
			errs.Add(prefix+".id", fmt.Sprintf("duplicate project id '%s'", p.ID))
		} else {
			seenIDs[p.ID] = true
		}

		if p.Path == "" {
			errs.Add(prefix+".path", "is required")
		}

		switch p.PackageManager {
		case "", "npm", "pnpm", "yarn":
		default:
			errs.Add(prefix+".package_manager", fmt.Sprintf("unknown package manager '%s' (want npm, pnpm or yarn)", p.PackageManager))
		}
	}
}
