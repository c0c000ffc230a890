package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validPanelKinds = map[string]bool{
	PanelNone:     true,
	PanelTerminal: true,
	PanelWeb:      true,
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true,
}

var validLogOutputs = map[string]bool{
	"stdout": true, "stderr": true, "file": true, "both": true,
}

// ValidateSettings checks s for values the daemon cannot run with.
func ValidateSettings(s *Settings) error {
	var errs ValidationErrors

	if s.SocketPath == "" {
		errs = append(errs, ValidationError{Field: "socket_path", Message: "must not be empty"})
	}
	if s.BufferSize <= 0 {
		errs = append(errs, ValidationError{
			Field:   "buffer_size",
			Message: fmt.Sprintf("must be positive, got %d", s.BufferSize),
		})
	} else if s.BufferSize%2 != 0 {
		errs = append(errs, ValidationError{
			Field:   "buffer_size",
			Message: fmt.Sprintf("must be even, got %d", s.BufferSize),
		})
	}
	if s.UserDataDir == "" {
		errs = append(errs, ValidationError{Field: "user_data_dir", Message: "must not be empty"})
	}

	if !validLogLevels[strings.ToLower(s.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q", s.Logging.Level),
		})
	}
	if !validLogFormats[s.Logging.Format] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q", s.Logging.Format),
		})
	}
	if !validLogOutputs[s.Logging.Output] {
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("unknown output %q", s.Logging.Output),
		})
	}

	if !validPanelKinds[s.Panel.Kind] {
		errs = append(errs, ValidationError{
			Field:   "panel.kind",
			Message: fmt.Sprintf("unknown panel %q (want none, terminal or web)", s.Panel.Kind),
		})
	}
	if s.Panel.Kind == PanelWeb && s.Panel.Listen == "" {
		errs = append(errs, ValidationError{Field: "panel.listen", Message: "required for the web panel"})
	}

	if s.Journal.Enabled && s.Journal.Path == "" {
		errs = append(errs, ValidationError{Field: "journal.path", Message: "required when the journal is enabled"})
	}
	if s.Watch.DebounceMs < 0 {
		errs = append(errs, ValidationError{Field: "watch.debounce_ms", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
