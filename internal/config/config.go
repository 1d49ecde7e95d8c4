package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/waterrocket/simulator/internal/database"
	"github.com/waterrocket/simulator/pkg/core"
)

// FileName is the config file looked up in the config directory.
const FileName = "waterrocket.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	// Restore loads the runs of an existing file at Path on start.
	Restore bool `json:"restore" mapstructure:"restore"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// InfluxConfig holds InfluxDB connection settings
type InfluxConfig struct {
	Enabled bool
	URL     string
	Token   string
	Org     string
	Bucket  string
	Backup  string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every default value. Load calls it; it is exported so
// the binary can fall back to defaults when no file exists.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("http.listen", "127.0.0.1:8087")
	viper.SetDefault("http.apiKey", "")

	defaults := core.DefaultLaunchInput()
	for i, s := range defaults.Stages {
		viper.SetDefault(fmt.Sprintf("launch.stage%d.waterMl", i+1), s.WaterML)
		viper.SetDefault(fmt.Sprintf("launch.stage%d.pressureAtm", i+1), s.PressureAtm)
	}

	viper.SetDefault("launchSite.name", "Launch pad")
	viper.SetDefault("launchSite.latitude", 0.0)
	viper.SetDefault("launchSite.longitude", 0.0)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./runs")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./waterrocket.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "0s")
	viper.SetDefault("storage.sqlite.restore", true)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "waterrocket")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "waterrocket")
	viper.SetDefault("influx.bucket", "trajectories")
	viper.SetDefault("influx.backupPath", "./logs/influx_backup.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
	viper.SetDefault("graylog.level", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "waterrocket")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("metrics.enabled", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			Restore:      viper.GetBool("storage.sqlite.restore"),
		},
	}
}

// GetPostgresConfig returns the db section.
func GetPostgresConfig() database.PostgresConfig {
	return database.PostgresConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetOTelConfig returns the otel section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the influx section with the server URL assembled.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled: viper.GetBool("influx.enabled"),
		URL: fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		Token:  viper.GetString("influx.token"),
		Org:    viper.GetString("influx.org"),
		Bucket: viper.GetString("influx.bucket"),
		Backup: viper.GetString("influx.backupPath"),
	}
}

// GetLaunchInput returns the configured default slider positions.
func GetLaunchInput() core.LaunchInput {
	var in core.LaunchInput
	for i := range in.Stages {
		in.Stages[i] = core.StageInput{
			WaterML:     viper.GetInt(fmt.Sprintf("launch.stage%d.waterMl", i+1)),
			PressureAtm: viper.GetFloat64(fmt.Sprintf("launch.stage%d.pressureAtm", i+1)),
		}
	}
	return in
}

// GetLaunchSite returns the configured launch site.
func GetLaunchSite() core.LaunchSite {
	return core.LaunchSite{
		Name:      viper.GetString("launchSite.name"),
		Latitude:  viper.GetFloat64("launchSite.latitude"),
		Longitude: viper.GetFloat64("launchSite.longitude"),
	}
}
