package config

// Config is the root configuration for the ServiceNow agent bridge.
type Config struct {
	Server     ServerConfig     `yaml:"server,omitempty"`
	Runtime    RuntimeConfig    `yaml:"runtime,omitempty"`
	ServiceNow ServiceNowConfig `yaml:"servicenow,omitempty"`
	Agent      AgentConfig      `yaml:"agent,omitempty"`
	Sessions   SessionsConfig   `yaml:"sessions,omitempty"`
	Intake     IntakeConfig     `yaml:"intake,omitempty"`
	Hooks      HooksConfig      `yaml:"hooks,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Debug      DebugConfig      `yaml:"debug,omitempty"`
}

// ServerConfig controls the webhook HTTP server.
type ServerConfig struct {
	Port int    `yaml:"port,omitempty"` // default 8080
	Bind string `yaml:"bind,omitempty"` // "all" | "loopback" | explicit host
}

// RuntimeConfig locates the hosted agent runtime (a Vertex AI reasoning engine).
type RuntimeConfig struct {
	Project    string `yaml:"project,omitempty"`
	Location   string `yaml:"location,omitempty"` // default "us-central1"
	ResourceID string `yaml:"resourceId,omitempty"`
}

// ServiceNowConfig holds ServiceNow table-API access settings.
// Password is normally resolved from Secret Manager at startup; setting it
// directly (or via ${VAR}) bypasses the lookup.
type ServiceNowConfig struct {
	Instance       string `yaml:"instance,omitempty"` // e.g. "dev12345.service-now.com"
	Username       string `yaml:"username,omitempty"`
	Password       string `yaml:"password,omitempty"`
	PasswordSecret string `yaml:"passwordSecret,omitempty"` // Secret Manager secret name
}

// AgentConfig selects the agent variant registered with the runtime.
type AgentConfig struct {
	Variant string `yaml:"variant,omitempty"` // "helpdesk" | "guided"
	Model   string `yaml:"model,omitempty"`
}

// SessionsConfig defines conversation → session mapping storage.
type SessionsConfig struct {
	Store string `yaml:"store,omitempty"` // "memory" | "sqlite"
	Path  string `yaml:"path,omitempty"`  // sqlite file; defaults under the data dir
	Audit bool   `yaml:"audit,omitempty"` // record message transcripts (sqlite only)
}

// IntakeConfig wires optional non-Teams intake sources.
type IntakeConfig struct {
	Email *EmailIntakeConfig `yaml:"email,omitempty"`
}

// EmailIntakeConfig polls an IMAP mailbox and opens incidents from unseen mail.
type EmailIntakeConfig struct {
	Server          string `yaml:"server"` // host:port, TLS
	Username        string `yaml:"username"`
	Password        string `yaml:"password,omitempty"`
	Mailbox         string `yaml:"mailbox,omitempty"`     // default "INBOX"
	PollSeconds     int    `yaml:"pollSeconds,omitempty"` // default 300
	Category        string `yaml:"category,omitempty"`
	AssignmentGroup string `yaml:"assignmentGroup,omitempty"`
}

// HooksConfig defines event hooks.
type HooksConfig struct {
	MessageReceived []HookEntry `yaml:"messageReceived,omitempty"`
	ReplySent       []HookEntry `yaml:"replySent,omitempty"`
	SessionCreated  []HookEntry `yaml:"sessionCreated,omitempty"`
	ServerStart     []HookEntry `yaml:"serverStart,omitempty"`
	ServerStop      []HookEntry `yaml:"serverStop,omitempty"`
}

// HookEntry defines a single hook action.
type HookEntry struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
}

// DebugConfig controls the live activity tail endpoint.
type DebugConfig struct {
	Events bool   `yaml:"events,omitempty"` // expose GET /debug/events
	Token  string `yaml:"token,omitempty"`  // bearer token required to attach
}
