package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Credential slots. Each slot has its own Jira URL and API token.
const (
	SlotProduction = "production"
	SlotStaging    = "staging"
)

// Config holds Jira connection settings and routing rules.
type Config struct {
	Slot      string `yaml:"slot"       mapstructure:"slot"`
	ProdURL   string `yaml:"prod_url"   mapstructure:"prod_url"`
	TestURL   string `yaml:"test_url"   mapstructure:"test_url"`
	Email     string `yaml:"email"      mapstructure:"email"`
	ProdToken string `yaml:"prod_token" mapstructure:"prod_token"`
	TestToken string `yaml:"test_token" mapstructure:"test_token"`

	Project         string `yaml:"project"           mapstructure:"project"`
	ServiceQueue    string `yaml:"service_queue"     mapstructure:"service_queue"`
	CurationQueue   string `yaml:"curation_queue"    mapstructure:"curation_queue"`
	ServiceDeskRole string `yaml:"service_desk_role" mapstructure:"service_desk_role"`

	DirectoryURL      string   `yaml:"directory_url"      mapstructure:"directory_url"`
	CatchAll          string   `yaml:"catch_all"          mapstructure:"catch_all"`
	FallbackPool      []string `yaml:"fallback_pool"      mapstructure:"fallback_pool"`
	EscalationContact string   `yaml:"escalation_contact" mapstructure:"escalation_contact"`

	Workers        int     `yaml:"workers"         mapstructure:"workers"`
	RateLimit      float64 `yaml:"rate_limit"      mapstructure:"rate_limit"`
	TimeoutSeconds int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`

	LastCheckedTicket string `yaml:"last_checked_ticket,omitempty" mapstructure:"last_checked_ticket"`
}

// Credentials is the Jira endpoint and secret for the active slot.
type Credentials struct {
	Slot  string
	URL   string
	Email string
	Token string
}

// DefaultPath returns the default config file path (~/.datahelp-router.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".datahelp-router.yaml"
	}
	return filepath.Join(home, ".datahelp-router.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("slot", SlotProduction)
	v.SetDefault("project", "NSF NCAR Research Data Help Desk")
	v.SetDefault("service_queue", "DATAHELP-SERVICES-CONSULTING")
	v.SetDefault("curation_queue", "DATAHELP-CURATION")
	v.SetDefault("service_desk_role", "Service Desk Team")
	v.SetDefault("workers", 1)
	v.SetDefault("rate_limit", 5.0)
	v.SetDefault("timeout_seconds", 30)
}

// Load reads config from the YAML file and applies env var overrides.
// configPath may be empty to use the default path.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == "" {
		configPath = DefaultPath()
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Env var overrides
	v.BindEnv("slot", "DATAHELP_SLOT")
	v.BindEnv("prod_url", "JIRA_PROD_URL")
	v.BindEnv("test_url", "JIRA_TEST_URL")
	v.BindEnv("email", "JIRA_EMAIL")
	v.BindEnv("prod_token", "PROD_JIRA_API_TOKEN")
	v.BindEnv("test_token", "TEST_JIRA_API_TOKEN")
	v.BindEnv("directory_url", "DATAHELP_DIRECTORY_URL")
	v.BindEnv("escalation_contact", "DATAHELP_ESCALATION_CONTACT")

	// Read the config file (ignore "not found" errors so env vars still work)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.Slot = NormalizeSlot(cfg.Slot)

	return cfg, nil
}

// NormalizeSlot folds a slot name as typed by a user to its canonical form.
func NormalizeSlot(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Credentials returns the URL and token of the active slot.
func (c Config) Credentials() Credentials {
	if c.Slot == SlotStaging {
		return Credentials{Slot: SlotStaging, URL: c.TestURL, Email: c.Email, Token: c.TestToken}
	}
	return Credentials{Slot: SlotProduction, URL: c.ProdURL, Email: c.Email, Token: c.ProdToken}
}

// Validate checks that required fields are present.
func (c Config) Validate() error {
	switch c.Slot {
	case SlotProduction:
		if c.ProdURL == "" {
			return errors.New("production JIRA URL is required (set prod_url or JIRA_PROD_URL env var)")
		}
		if c.ProdToken == "" {
			return errors.New("production JIRA token is required (set prod_token or PROD_JIRA_API_TOKEN env var)")
		}
	case SlotStaging:
		if c.TestURL == "" {
			return errors.New("staging JIRA URL is required (set test_url or JIRA_TEST_URL env var)")
		}
		if c.TestToken == "" {
			return errors.New("staging JIRA token is required (set test_token or TEST_JIRA_API_TOKEN env var)")
		}
	default:
		return fmt.Errorf("unknown slot %q (want %q or %q)", c.Slot, SlotProduction, SlotStaging)
	}
	if c.Project == "" {
		return errors.New("project is required")
	}
	if strings.TrimSpace(c.ServiceQueue) == "" || strings.TrimSpace(c.CurationQueue) == "" {
		return errors.New("service_queue and curation_queue are required")
	}
	if strings.EqualFold(strings.TrimSpace(c.ServiceQueue), strings.TrimSpace(c.CurationQueue)) {
		return fmt.Errorf("service_queue and curation_queue must differ, both are %q", c.ServiceQueue)
	}
	if c.DirectoryURL == "" {
		return errors.New("directory URL is required (set directory_url or DATAHELP_DIRECTORY_URL env var)")
	}
	if c.CatchAll != "" && len(c.FallbackPool) == 0 {
		return fmt.Errorf("fallback_pool must list at least one address when catch_all (%s) is set", c.CatchAll)
	}
	for _, addr := range c.FallbackPool {
		if strings.EqualFold(addr, c.CatchAll) {
			return fmt.Errorf("fallback_pool must not contain the catch_all address %s", c.CatchAll)
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// Save writes the config to the given path (or default path if empty).
func Save(cfg Config, configPath string) error {
	if configPath == "" {
		configPath = DefaultPath()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// SaveLastChecked records the last routed ticket key in the config file,
// leaving every other key as written. Values that came from env vars are
// never copied into the file.
func SaveLastChecked(configPath, key string) error {
	if configPath == "" {
		configPath = DefaultPath()
	}

	doc := map[string]any{}
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case os.IsNotExist(err):
	default:
		return fmt.Errorf("reading config file: %w", err)
	}

	doc["last_checked_ticket"] = key

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(configPath, out, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
