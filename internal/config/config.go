package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration. It is merged from the YAML
// file, environment expansion and defaults at load time, and is immutable
// for the lifetime of a run.
type Config struct {
	// Tournament is the numeric id of the tournament track to follow.
	Tournament int `yaml:"tournament"`

	// DataDirectory is the root under which per-round datasets are stored.
	DataDirectory string `yaml:"data_directory"`
	// DatasetPrefix names per-round dataset directories: <prefix>_<round>.
	DatasetPrefix string `yaml:"dataset_prefix,omitempty"`

	// CheckValidationData enables the cheaper validation-subset pre-check
	// before the full training-data comparison.
	CheckValidationData bool `yaml:"check_validation_data"`

	// WakeupTime is the number of seconds before the reported round close
	// at which fine polling starts.
	WakeupTime int `yaml:"wakeup_time,omitempty"`
	// RoundWaitInterval is the number of seconds between fine polls.
	RoundWaitInterval int `yaml:"round_wait_interval,omitempty"`
	// InvalidDatasetWaittime is the number of seconds to wait before
	// re-downloading a dataset that did not validate as new.
	InvalidDatasetWaittime int `yaml:"invalid_dataset_waittime,omitempty"`
	// SingleRunMaxWait aborts single-shot mode when the next round boundary
	// is more than this many seconds away.
	SingleRunMaxWait int `yaml:"single_run_max_wait,omitempty"`
	// RetryWaitSchedule is the ordered list of per-attempt retry waits in
	// seconds used by the API client for transient failures.
	RetryWaitSchedule []int `yaml:"retry_wait_schedule,omitempty"`

	StateFile   string `yaml:"state_file,omitempty"`
	HistoryFile string `yaml:"history_file,omitempty"`

	// PredictionsDirectory is where prediction files are expected, laid out
	// as <predictions_directory>/round_<n>/<file>.
	PredictionsDirectory string `yaml:"predictions_directory,omitempty"`
	// Uploads lists prediction files to submit each round.
	Uploads []UploadConfig `yaml:"uploads,omitempty"`
	// Commands lists shell commands to run on round events.
	Commands []CommandConfig `yaml:"commands,omitempty"`

	API     APIConfig     `yaml:"api,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
	Events  EventsConfig  `yaml:"events,omitempty"`
	Reports ReportsConfig `yaml:"reports,omitempty"`
}

// APIConfig configures the remote tournament service client. Credentials are
// only read from the environment so they never end up in config files.
type APIConfig struct {
	BaseURL   string `yaml:"base_url,omitempty"`
	PublicID  string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// UploadConfig names one prediction file to submit each round.
type UploadConfig struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// CommandConfig names one shell-command handler and the command line it runs
// per round event. %round% and %dataset_path% are substituted before
// execution. At least one command must be set.
type CommandConfig struct {
	Name                string `yaml:"name"`
	OnNewTrainingData   string `yaml:"on_new_training_data,omitempty"`
	OnNewTournamentData string `yaml:"on_new_tournament_data,omitempty"`
	OnCleanup           string `yaml:"on_cleanup,omitempty"`
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"` // e.g. ":9090"; empty disables
}

// EventsConfig configures the optional NATS lifecycle event publisher.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url,omitempty"`
	SubjectPrefix string `yaml:"subject_prefix,omitempty"`
}

// ReportsConfig configures where per-round reports are written.
type ReportsConfig struct {
	Directory string `yaml:"directory,omitempty"`
}

const (
	defaultBaseURL       = "https://api-tournament.numer.ai"
	defaultDatasetPrefix = "dataset"

	// Environment variable names for API credentials.
	EnvPublicID  = "TOURNAUTO_PUBLIC_ID"
	EnvSecretKey = "TOURNAUTO_SECRET_KEY"
)

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists; credentials may live there.
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	config.API.PublicID = os.Getenv(EnvPublicID)
	config.API.SecretKey = os.Getenv(EnvSecretKey)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns a configuration with all defaults applied and no file input.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Tournament == 0 {
		c.Tournament = 1
	}
	if c.DataDirectory == "" {
		c.DataDirectory = "./data"
	}
	if c.DatasetPrefix == "" {
		c.DatasetPrefix = defaultDatasetPrefix
	}
	if c.WakeupTime == 0 {
		c.WakeupTime = 300
	}
	if c.RoundWaitInterval == 0 {
		c.RoundWaitInterval = 60
	}
	if c.InvalidDatasetWaittime == 0 {
		c.InvalidDatasetWaittime = 600
	}
	if c.SingleRunMaxWait == 0 {
		c.SingleRunMaxWait = 86400
	}
	if len(c.RetryWaitSchedule) == 0 {
		// Five 1-minute steps, three 10-minute steps, three 1-hour steps.
		c.RetryWaitSchedule = []int{60, 60, 60, 60, 60, 600, 600, 600, 3600, 3600, 3600}
	}
	if c.StateFile == "" {
		c.StateFile = "state.json"
	}
	if c.HistoryFile == "" {
		c.HistoryFile = "history.db"
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURL
	}
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = "tournauto.rounds"
	}
	if c.Reports.Directory == "" {
		c.Reports.Directory = "./reports"
	}
	if c.PredictionsDirectory == "" {
		c.PredictionsDirectory = "./predictions"
	}
}

// Validate checks internal consistency of the configuration.
func (c *Config) Validate() error {
	if c.Tournament < 1 {
		return fmt.Errorf("tournament must be positive, got %d", c.Tournament)
	}
	if c.WakeupTime < 0 || c.RoundWaitInterval < 1 {
		return fmt.Errorf("wakeup_time must be >= 0 and round_wait_interval >= 1")
	}
	if c.InvalidDatasetWaittime < 1 {
		return fmt.Errorf("invalid_dataset_waittime must be >= 1")
	}
	for i, s := range c.RetryWaitSchedule {
		if s < 1 {
			return fmt.Errorf("retry_wait_schedule[%d] must be >= 1, got %d", i, s)
		}
	}
	seen := map[string]bool{}
	for i, u := range c.Uploads {
		if u.Name == "" || u.File == "" {
			return fmt.Errorf("uploads[%d]: name and file are required", i)
		}
		if seen[u.Name] {
			return fmt.Errorf("uploads[%d]: duplicate name %q", i, u.Name)
		}
		seen[u.Name] = true
	}
	seenCmd := map[string]bool{}
	for i, c := range c.Commands {
		if c.Name == "" {
			return fmt.Errorf("commands[%d]: name is required", i)
		}
		if seenCmd[c.Name] {
			return fmt.Errorf("commands[%d]: duplicate name %q", i, c.Name)
		}
		if c.OnNewTrainingData == "" && c.OnNewTournamentData == "" && c.OnCleanup == "" {
			return fmt.Errorf("commands[%d] (%s): at least one command is required", i, c.Name)
		}
		seenCmd[c.Name] = true
	}
	return nil
}

// Duration accessors: the YAML options are plain seconds.

func (c *Config) Wakeup() time.Duration       { return time.Duration(c.WakeupTime) * time.Second }
func (c *Config) PollInterval() time.Duration { return time.Duration(c.RoundWaitInterval) * time.Second }

func (c *Config) InvalidDataWait() time.Duration {
	return time.Duration(c.InvalidDatasetWaittime) * time.Second
}

func (c *Config) SingleRunWaitCap() time.Duration {
	return time.Duration(c.SingleRunMaxWait) * time.Second
}

// RetrySchedule converts the configured per-attempt waits to durations.
func (c *Config) RetrySchedule() []time.Duration {
	out := make([]time.Duration, len(c.RetryWaitSchedule))
	for i, s := range c.RetryWaitSchedule {
		out[i] = time.Duration(s) * time.Second
	}
	return out
}
