// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	APIs     APIsConfig     `mapstructure:"apis"`
	Email    EmailConfig    `mapstructure:"email"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	AuditIndex string   `mapstructure:"audit_index"`
	Enabled    bool     `mapstructure:"enabled"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	PageSpeed struct {
		BaseURL  string `mapstructure:"base_url"`
		APIKey   string `mapstructure:"api_key"`
		Strategy string `mapstructure:"strategy"` // "mobile" or "desktop"
		Timeout  int    `mapstructure:"timeout"`  // milliseconds
	} `mapstructure:"pagespeed"`

	GenAI struct {
		BaseURL     string  `mapstructure:"base_url"`
		APIKey      string  `mapstructure:"api_key"`
		Model       string  `mapstructure:"model"`
		MaxTokens   int     `mapstructure:"max_tokens"`
		Temperature float64 `mapstructure:"temperature"`
		MaxRetries  int     `mapstructure:"max_retries"`
		Timeout     int     `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"genai"`
}

// EmailConfig holds settings for outbound email and SMS delivery.
type EmailConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`

	SES struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		ReplyTo   string `mapstructure:"reply_to"`
	} `mapstructure:"ses"`

	SNS struct {
		Enabled    bool   `mapstructure:"enabled"`
		AlertPhone string `mapstructure:"alert_phone"`
	} `mapstructure:"sns"`

	InternalAddress string `mapstructure:"internal_address"`
	SignatureName   string `mapstructure:"signature_name"`
}

// PipelineConfig holds the outreach pipeline gates and secrets.
type PipelineConfig struct {
	AuditsPerURL       int    `mapstructure:"audits_per_url"`       // per window
	AuditWindowHours   int    `mapstructure:"audit_window_hours"`   // rate-limit window
	DailySendCap       int    `mapstructure:"daily_send_cap"`       // outreach emails per day
	BusinessHourStart  int    `mapstructure:"business_hour_start"`  // 24h clock
	BusinessHourEnd    int    `mapstructure:"business_hour_end"`    // exclusive
	Timezone           string `mapstructure:"timezone"`             // IANA name
	UnsubscribeBaseURL string `mapstructure:"unsubscribe_base_url"` // link target in footers
	UnsubscribeSecret  string `mapstructure:"unsubscribe_secret"`   // token HMAC key
	SchedulingSecret   string `mapstructure:"scheduling_secret"`    // webhook signature key
	DiscoveryEventType string `mapstructure:"discovery_event_type"` // scheduling event to react to
	StageTimeout       int    `mapstructure:"stage_timeout"`        // milliseconds, per stage
	OrchestratorBudget int    `mapstructure:"orchestrator_budget"`  // milliseconds, whole run
}

// MonitorConfig holds settings for the incident and reporting tier.
type MonitorConfig struct {
	UptimeAttentionPct float64 `mapstructure:"uptime_attention_pct"` // below this, status is attention
	UptimeActionPct    float64 `mapstructure:"uptime_action_pct"`    // below this, status is action_needed
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
