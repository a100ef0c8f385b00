package config

import "fmt"

// DefaultPasswordSecret is the Secret Manager secret holding the ServiceNow
// instance password when no other name is configured.
const DefaultPasswordSecret = "ServiceNow_Instance_Password"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
			Bind: "all",
		},
		Runtime: RuntimeConfig{
			Location: "us-central1",
		},
		ServiceNow: ServiceNowConfig{
			PasswordSecret: DefaultPasswordSecret,
		},
		Agent: AgentConfig{
			Variant: "helpdesk",
			Model:   "gemini-2.5-flash",
		},
		Sessions: SessionsConfig{
			Store: "memory",
		},
		Logging: LoggingConfig{
			Level: "info",
			Style: "pretty",
		},
	}
}
