package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type EmailConfig struct {
	SMTPHost string   `yaml:"smtpHost"`
	SMTPPort int      `yaml:"smtpPort"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	Password string   `yaml:"password"`
}

// Configured reports whether the sender has enough to attempt delivery.
// Missing settings are a valid state: alerts degrade to a logged no-op.
func (e EmailConfig) Configured() bool {
	return e.From != "" && len(e.To) > 0 && e.Password != ""
}

type Config struct {
	DataDir    string
	Interval   time.Duration
	Cooldown   time.Duration
	Namespaces []string // empty = all
	HTTPAddr   string
	LogLevel   string
	Email      EmailConfig
}

// fileConfig is the YAML shape; durations are strings (e.g. "30s", "10m")
// parsed after load.
type fileConfig struct {
	DataDir    string      `yaml:"dataDir"`
	Interval   string      `yaml:"interval"`
	Cooldown   string      `yaml:"cooldown"`
	Namespaces []string    `yaml:"namespaces"`
	HTTPAddr   string      `yaml:"httpAddr"`
	LogLevel   string      `yaml:"logLevel"`
	Email      EmailConfig `yaml:"email"`
}

// Load builds the immutable runtime config: defaults, then the optional
// YAML file, then environment variables on top.
func Load(path string) (*Config, error) {
	c := &Config{
		DataDir:  "/data",
		Interval: 30 * time.Second,
		Cooldown: 10 * time.Minute,
		HTTPAddr: ":8080",
		LogLevel: "info",
		Email: EmailConfig{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
	}
	if path != "" {
		if err := c.applyFile(path); err != nil {
			return nil, err
		}
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("unmarshal yaml: %w", err)
	}
	if f.DataDir != "" {
		c.DataDir = f.DataDir
	}
	if f.Interval != "" {
		d, err := time.ParseDuration(f.Interval)
		if err != nil {
			return fmt.Errorf("invalid interval %q: %w", f.Interval, err)
		}
		c.Interval = d
	}
	if f.Cooldown != "" {
		d, err := time.ParseDuration(f.Cooldown)
		if err != nil {
			return fmt.Errorf("invalid cooldown %q: %w", f.Cooldown, err)
		}
		c.Cooldown = d
	}
	if len(f.Namespaces) > 0 {
		c.Namespaces = f.Namespaces
	}
	if f.HTTPAddr != "" {
		c.HTTPAddr = f.HTTPAddr
	}
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
	if f.Email.SMTPHost != "" {
		c.Email.SMTPHost = f.Email.SMTPHost
	}
	if f.Email.SMTPPort != 0 {
		c.Email.SMTPPort = f.Email.SMTPPort
	}
	if f.Email.From != "" {
		c.Email.From = f.Email.From
	}
	if len(f.Email.To) > 0 {
		c.Email.To = f.Email.To
	}
	if f.Email.Password != "" {
		c.Email.Password = f.Email.Password
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if d, ok := envSeconds("INTERVAL_SECONDS"); ok {
		c.Interval = d
	}
	if d, ok := envSeconds("ALERT_COOLDOWN_SECONDS"); ok {
		c.Cooldown = d
	}
	if v := os.Getenv("NAMESPACES"); v != "" {
		c.Namespaces = splitCSV(v)
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.Email.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Email.SMTPPort = p
		}
	}
	if v := os.Getenv("ALERT_EMAIL_FROM"); v != "" {
		c.Email.From = v
	}
	if v := os.Getenv("ALERT_EMAIL_TO"); v != "" {
		c.Email.To = splitCSV(v)
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Email.Password = v
	}
	// legacy name kept for existing deployments
	if v := os.Getenv("GMAIL_APP_PASSWORD"); v != "" && c.Email.Password == "" {
		c.Email.Password = v
	}
}

func envSeconds(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

func splitCSV(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
