package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so passwords and tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.ServiceNow.Password = expandEnvVars(cfg.ServiceNow.Password)
	cfg.Debug.Token = expandEnvVars(cfg.Debug.Token)
	if cfg.Intake.Email != nil {
		cfg.Intake.Email.Password = expandEnvVars(cfg.Intake.Email.Password)
	}
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults plus env values, which
// covers deployments configured entirely through the environment.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = "all"
	}
	if cfg.Runtime.Location == "" {
		cfg.Runtime.Location = "us-central1"
	}
	if cfg.ServiceNow.PasswordSecret == "" {
		cfg.ServiceNow.PasswordSecret = DefaultPasswordSecret
	}
	if cfg.Agent.Variant == "" {
		cfg.Agent.Variant = "helpdesk"
	}
	if cfg.Agent.Model == "" {
		cfg.Agent.Model = "gemini-2.5-flash"
	}
	if cfg.Sessions.Store == "" {
		cfg.Sessions.Store = "memory"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = "pretty"
	}
	if cfg.Intake.Email != nil {
		if cfg.Intake.Email.Mailbox == "" {
			cfg.Intake.Email.Mailbox = "INBOX"
		}
		if cfg.Intake.Email.PollSeconds == 0 {
			cfg.Intake.Email.PollSeconds = 300
		}
	}
}

// applyEnvOverrides reads environment variables and overrides config values.
// The GOOGLE_CLOUD_PROJECT/LOCATION/RESOURCE_ID and SNOW_* names match the
// hosted deployment; SNOWAGENT_* cover local server settings.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		cfg.Runtime.Project = v
	}
	if v := os.Getenv("LOCATION"); v != "" {
		cfg.Runtime.Location = v
	}
	if v := os.Getenv("RESOURCE_ID"); v != "" {
		cfg.Runtime.ResourceID = v
	}
	if v := os.Getenv("SNOW_INSTANCE"); v != "" {
		cfg.ServiceNow.Instance = v
	}
	if v := os.Getenv("SNOW_USERNAME"); v != "" {
		cfg.ServiceNow.Username = v
	}
	if v := os.Getenv("SNOW_PASSWORD"); v != "" {
		cfg.ServiceNow.Password = v
	}
	if v := os.Getenv("SNOW_PASSWORD_SECRET"); v != "" {
		cfg.ServiceNow.PasswordSecret = v
	}
	if v := os.Getenv("SNOWAGENT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SNOWAGENT_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("SNOWAGENT_SESSION_STORE"); v != "" {
		cfg.Sessions.Store = v
	}
	if v := os.Getenv("SNOWAGENT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
