package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	VerifyToken        string `env:"WEBHOOK_VERIFY_TOKEN,required=true"`
	AppSecret          string `env:"WEBHOOK_APP_SECRET"`
	GraphAPIToken      string `env:"GRAPH_API_TOKEN,required=true"`
	GraphPhoneNumberID string `env:"GRAPH_PHONE_NUMBER_ID,required=true"`
	GraphBaseURL       string `env:"GRAPH_BASE_URL,default=https://graph.facebook.com/v19.0"`

	StorageRoot  string `env:"STORAGE_ROOT,default=./data"`
	StateFile    string `env:"STATE_FILE,default=./data/state.json"`
	StateBackend string `env:"STATE_BACKEND,default=file"`
	SeenBackend  string `env:"SEEN_BACKEND,default=file"`
	DatabaseDSN  string `env:"DATABASE_DSN"`
	RedisURL     string `env:"REDIS_URL"`

	RawStickyWindow   string `env:"STICKY_WINDOW,default=4h"`
	RawPromptCooldown string `env:"PROMPT_COOLDOWN,default=1h"`
	RawSeenRetention  string `env:"SEEN_RETENTION,default=168h"`
	RawPruneInterval  string `env:"PRUNE_INTERVAL,default=1h"`
	CaptionCodes      bool   `env:"CAPTION_CODES,default=true"`
	PromptBody        string `env:"PROMPT_BODY"`

	ReportCron   string `env:"REPORT_CRON,default=0 6 * * *"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"`
	MailTo       string `env:"MAIL_TO"`
	AdminSecret  string `env:"ADMIN_SECRET"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// Parsed from the Raw* fields during Load.
	StickyWindow   time.Duration
	PromptCooldown time.Duration
	SeenRetention  time.Duration
	PruneInterval  time.Duration
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.StickyWindow, err = parseDuration("STICKY_WINDOW", cfg.RawStickyWindow); err != nil {
		return nil, err
	}
	if cfg.PromptCooldown, err = parseDuration("PROMPT_COOLDOWN", cfg.RawPromptCooldown); err != nil {
		return nil, err
	}
	if cfg.SeenRetention, err = parseDuration("SEEN_RETENTION", cfg.RawSeenRetention); err != nil {
		return nil, err
	}
	if cfg.PruneInterval, err = parseDuration("PRUNE_INTERVAL", cfg.RawPruneInterval); err != nil {
		return nil, err
	}

	if err := cfg.validateBackends(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validateBackends() error {
	switch c.StateBackend {
	case "file", "postgres":
	default:
		return fmt.Errorf("invalid STATE_BACKEND %q, want file or postgres", c.StateBackend)
	}

	switch c.SeenBackend {
	case "file", "memory", "redis", "postgres":
	default:
		return fmt.Errorf("invalid SEEN_BACKEND %q, want file, memory, redis, or postgres", c.SeenBackend)
	}

	if (c.StateBackend == "postgres" || c.SeenBackend == "postgres") && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for the postgres backend")
	}
	if c.SeenBackend == "redis" && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required for the redis seen backend")
	}
	return nil
}

// MailingEnabled reports whether the SMTP settings are complete enough to
// deliver reports.
func (c *Config) MailingEnabled() bool {
	return c.SMTPHost != "" && c.MailFrom != "" && c.MailTo != ""
}

func parseDuration(name, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}
