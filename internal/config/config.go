package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone    = "Asia/Shanghai"
	defaultMaxDaysBack = 3
	defaultPapersAPI   = "https://huggingface.co/api/daily_papers"

	configPathEnv    = "DAILY_PAPER_CONFIG"
	papersAPIEnv     = "HF_API_URL"
	timezoneEnv      = "TIMEZONE"
	maxDaysBackEnv   = "MAX_DAYS_BACK"
	subjectPrefixEnv = "SUBJECT_PREFIX"
	smtpHostEnv      = "SMTP_HOST"
	smtpPortEnv      = "SMTP_PORT"
	smtpUserEnv      = "SMTP_USERNAME"
	smtpPasswordEnv  = "SMTP_PASSWORD"
	mailFromEnv      = "MAIL_FROM"
	mailToEnv        = "MAIL_TO"
	logLevelEnv      = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Run      RunConfig      `yaml:"run"`
	Mail     MailConfig     `yaml:"mail"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ProviderConfig describes the upstream daily-papers endpoint.
type ProviderConfig struct {
	PapersAPIURL string `yaml:"papersApiUrl"`
}

// RunConfig defines per-run behavior: the timezone the publishing day is
// aligned to, the fallback walk depth, and the subject prefix.
type RunConfig struct {
	Timezone      string         `yaml:"timezone"`
	MaxDaysBack   int            `yaml:"maxDaysBack"`
	SubjectPrefix string         `yaml:"subjectPrefix"`
	location      *time.Location `yaml:"-"`
}

// Location resolves the run timezone string to a time.Location.
func (r RunConfig) Location() *time.Location {
	if r.location != nil {
		return r.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// MailConfig wires all data required to submit the digest over SMTP.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// Sender returns the from-address, falling back to the SMTP username.
func (m MailConfig) Sender() string {
	if m.From != "" {
		return m.From
	}
	return m.Username
}

// Recipients splits the configured recipient string on commas or semicolons,
// trimming whitespace and dropping empty entries.
func (m MailConfig) Recipients() []string {
	fields := strings.FieldsFunc(m.To, func(r rune) bool {
		return r == ',' || r == ';'
	})

	recipients := make([]string, 0, len(fields))
	for _, field := range fields {
		if addr := strings.TrimSpace(field); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	return recipients
}

// LoggingConfig controls console log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			// The -1 sentinel distinguishes a file that omits maxDaysBack
			// from one that explicitly disables the fallback walk with 0.
			fileCfg := Config{Run: RunConfig{MaxDaysBack: -1}}
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// ApplyRunOverrides layers CLI-provided run settings on top of the loaded
// configuration. A negative maxDaysBack or empty string leaves the loaded
// value untouched. The timezone is re-resolved when changed.
func (c *Config) ApplyRunOverrides(timezone, subjectPrefix string, maxDaysBack int) {
	if timezone != "" {
		c.Run.Timezone = timezone
		c.bindTimezone()
	}
	if subjectPrefix != "" {
		c.Run.SubjectPrefix = subjectPrefix
	}
	if maxDaysBack >= 0 {
		c.Run.MaxDaysBack = maxDaysBack
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(papersAPIEnv); v != "" {
		c.Provider.PapersAPIURL = v
	}

	if v := os.Getenv(timezoneEnv); v != "" {
		c.Run.Timezone = v
	}
	if v := os.Getenv(maxDaysBackEnv); v != "" {
		if days, err := strconv.Atoi(v); err != nil || days < 0 {
			log.Printf("config: invalid %s=%s (keeping %d)", maxDaysBackEnv, v, c.Run.MaxDaysBack)
		} else {
			c.Run.MaxDaysBack = days
		}
	}
	if v := os.Getenv(subjectPrefixEnv); v != "" {
		c.Run.SubjectPrefix = v
	}

	if v := os.Getenv(smtpHostEnv); v != "" {
		c.Mail.Host = v
	}
	if v := os.Getenv(smtpPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err != nil {
			log.Printf("config: invalid %s=%s (keeping %d)", smtpPortEnv, v, c.Mail.Port)
		} else {
			c.Mail.Port = port
		}
	}
	if v := os.Getenv(smtpUserEnv); v != "" {
		c.Mail.Username = v
	}
	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.Mail.Password = v
	}
	if v := os.Getenv(mailFromEnv); v != "" {
		c.Mail.From = v
	}
	if v := os.Getenv(mailToEnv); v != "" {
		c.Mail.To = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Run.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Run.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Provider.PapersAPIURL != "" {
		base.Provider = override.Provider
	}

	if override.Run.Timezone != "" {
		base.Run.Timezone = override.Run.Timezone
	}
	if override.Run.MaxDaysBack >= 0 {
		base.Run.MaxDaysBack = override.Run.MaxDaysBack
	}
	if override.Run.SubjectPrefix != "" {
		base.Run.SubjectPrefix = override.Run.SubjectPrefix
	}

	if override.Mail.Host != "" {
		base.Mail.Host = override.Mail.Host
	}
	if override.Mail.Port != 0 {
		base.Mail.Port = override.Mail.Port
	}
	if override.Mail.Username != "" {
		base.Mail.Username = override.Mail.Username
	}
	if override.Mail.Password != "" {
		base.Mail.Password = override.Mail.Password
	}
	if override.Mail.From != "" {
		base.Mail.From = override.Mail.From
	}
	if override.Mail.To != "" {
		base.Mail.To = override.Mail.To
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Provider: ProviderConfig{PapersAPIURL: defaultPapersAPI},
		Run: RunConfig{
			Timezone:    defaultTimezone,
			MaxDaysBack: defaultMaxDaysBack,
			location:    tz,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
