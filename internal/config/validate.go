package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	// Runtime validation: the webhook cannot reach the agent without these.
	if cfg.Runtime.Project == "" {
		issues = append(issues, ValidationIssue{
			Path:    "runtime.project",
			Message: "project is required (or set GOOGLE_CLOUD_PROJECT)",
		})
	}
	if cfg.Runtime.ResourceID == "" {
		issues = append(issues, ValidationIssue{
			Path:    "runtime.resourceId",
			Message: "resourceId is required (or set RESOURCE_ID)",
		})
	}

	if cfg.ServiceNow.Instance == "" {
		issues = append(issues, ValidationIssue{
			Path:    "servicenow.instance",
			Message: "instance is required (or set SNOW_INSTANCE)",
		})
	}
	if cfg.ServiceNow.Username == "" {
		issues = append(issues, ValidationIssue{
			Path:    "servicenow.username",
			Message: "username is required (or set SNOW_USERNAME)",
		})
	}

	validVariants := []string{"helpdesk", "guided"}
	if cfg.Agent.Variant != "" && !slices.Contains(validVariants, cfg.Agent.Variant) {
		issues = append(issues, ValidationIssue{
			Path:    "agent.variant",
			Message: fmt.Sprintf("must be one of %v, got %q", validVariants, cfg.Agent.Variant),
		})
	}

	validStores := []string{"memory", "sqlite"}
	if cfg.Sessions.Store != "" && !slices.Contains(validStores, cfg.Sessions.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "sessions.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Sessions.Store),
		})
	}
	if cfg.Sessions.Audit && cfg.Sessions.Store != "sqlite" {
		issues = append(issues, ValidationIssue{
			Path:    "sessions.audit",
			Message: "audit requires sessions.store: sqlite",
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validStyles := []string{"pretty", "json"}
	if cfg.Logging.Style != "" && !slices.Contains(validStyles, cfg.Logging.Style) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.style",
			Message: fmt.Sprintf("must be one of %v, got %q", validStyles, cfg.Logging.Style),
		})
	}

	// Email intake validation (only if configured)
	if cfg.Intake.Email != nil {
		email := cfg.Intake.Email
		if email.Server == "" {
			issues = append(issues, ValidationIssue{
				Path:    "intake.email.server",
				Message: "server is required",
			})
		}
		if email.Username == "" {
			issues = append(issues, ValidationIssue{
				Path:    "intake.email.username",
				Message: "username is required",
			})
		}
		if email.PollSeconds < 0 {
			issues = append(issues, ValidationIssue{
				Path:    "intake.email.pollSeconds",
				Message: fmt.Sprintf("must be non-negative, got %d", email.PollSeconds),
			})
		}
	}

	if cfg.Debug.Events && cfg.Debug.Token == "" {
		issues = append(issues, ValidationIssue{
			Path:    "debug.token",
			Message: "token is required when debug.events is enabled",
		})
	}

	return issues
}
