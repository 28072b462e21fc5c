// config.go: settings struct and functions to load and save the ASTRA configuration.
package conf

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogRotationType defines the type of log rotation
type LogRotationType string

const (
	RotationDaily  LogRotationType = "daily"
	RotationWeekly LogRotationType = "weekly"
	RotationSize   LogRotationType = "size"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool            // true to enable this log
	Path     string          // path to log file
	Rotation LogRotationType // rotation type
	MaxSize  int64           // max size in bytes for size rotation
}

// MainSettings contains process-wide settings.
type MainSettings struct {
	Name       string    // instance name shown in logs
	InstanceID string    // unique identifier of this instance, stamped on exported envelopes
	BaseURL    string    // optional base URL advertised to exchange peers
	Log        LogConfig // main log file settings
}

// SQLiteSettings contains settings for the SQLite database.
type SQLiteSettings struct {
	Enabled bool   // true to enable SQLite storage
	Path    string // path to the database file
}

// MySQLSettings contains settings for the MySQL database.
type MySQLSettings struct {
	Enabled  bool   // true to enable MySQL storage
	Username string // MySQL username
	Password string // MySQL password
	Database string // MySQL database name
	Host     string // MySQL host
	Port     string // MySQL port
}

// OutputSettings selects the storage backend.
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// DetectionSettings control the active detector and the orchestrator.
type DetectionSettings struct {
	Detector        string        // name of the active detector (heuristic, retrieval, remote)
	Timeout         time.Duration // per-call detection timeout
	MaxConcurrency  int           // max concurrent detection calls per batch, 0 for unbounded
	Labels          []string      // candidate labels passed to detectors that take them
	ThresholdLength int           // text length threshold for the heuristic detector
	TopK            int           // retrieval detector: number of corpus snippets to retrieve
	Endpoint        string        // remote detector: inference endpoint URL
}

// GraphSettings cap the co-occurrence graph projection.
type GraphSettings struct {
	MaxEdges int // cap on edges returned, highest weight first
	MaxNodes int // cap on nodes returned
}

// ExchangeSettings control threat indicator export.
type ExchangeSettings struct {
	Limit int // default number of indicator groups exported
}

// FileIngestSettings configure the local file connector.
type FileIngestSettings struct {
	Enabled bool   // true to enable the file connector
	Path    string // directory scanned for content files
	Pattern string // glob pattern matched against file names
}

// HTTPIngestSettings configure the HTTP page connector.
type HTTPIngestSettings struct {
	Enabled   bool          // true to enable the HTTP connector
	URLs      []string      // pages fetched on each ingest run
	Timeout   time.Duration // per-request timeout
	StripHTML bool          // true to convert fetched HTML to plain text
}

// IngestSettings configure the content ingestion connectors.
type IngestSettings struct {
	File FileIngestSettings
	HTTP HTTPIngestSettings
}

// WebServerSettings contains settings for the HTTP API.
type WebServerSettings struct {
	Enabled bool   // true to enable the API server
	Port    string // port to listen on
}

// MetricsSettings contains settings for the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   // true to expose Prometheus metrics
	Listen  string // listen address and port for the metrics endpoint
}

// Settings is the root of the configuration tree.
type Settings struct {
	Debug bool // true to enable debug logging

	Main      MainSettings
	Output    OutputSettings
	Detection DetectionSettings
	Graph     GraphSettings
	Exchange  ExchangeSettings
	Ingest    IngestSettings
	WebServer WebServerSettings
	Metrics   MetricsSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into the global Settings instance.
func Load() (*Settings, error) {
	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	// An instance id is required for exchange producer stamping, generate
	// and persist one on first start.
	if settings.Main.InstanceID == "" {
		settings.Main.InstanceID = uuid.NewString()
		viper.Set("main.instanceid", settings.Main.InstanceID)
		if err := viper.WriteConfig(); err != nil {
			log.Printf("warning: could not persist generated instance id: %v", err)
		}
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

// initViper sets up the search paths, defaults and reads the config file,
// creating a default one if none exists.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// createDefaultConfig writes the default settings to a new config file.
func createDefaultConfig(configDir string) error {
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}
	if err := SaveSettings(configPath, settings); err != nil {
		return fmt.Errorf("error writing default config: %w", err)
	}

	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// SaveSettings writes the settings struct to the given path as YAML.
func SaveSettings(configPath string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to yaml: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing settings to %s: %w", configPath, err)
	}
	return nil
}

// Setting returns the global settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("error loading settings: %v", err)
			}
		}
	})

	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetDefaultConfigPaths returns the list of directories searched for config.yaml.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}

	return []string{
		filepath.Join(homeDir, ".config", "astra"),
		".",
		"/etc/astra",
	}, nil
}
