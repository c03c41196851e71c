package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"racecalc/internal/timefmt"
)

// EnvPrefix prefixes environment overrides, e.g. RACECALC_ATHLETE_FTP_WATTS
const EnvPrefix = "RACECALC"

// Config represents the application configuration
type Config struct {
	Strava  StravaConfig  `json:"strava" mapstructure:"strava"`
	Athlete AthleteConfig `json:"athlete" mapstructure:"athlete"`
	Bike    BikeConfig    `json:"bike" mapstructure:"bike"`
	Display DisplayConfig `json:"display" mapstructure:"display"`
	Server  ServerConfig  `json:"server" mapstructure:"server"`
	Log     LogConfig     `json:"log" mapstructure:"log"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `json:"client_id" mapstructure:"client_id"`
	ClientSecret string `json:"client_secret" mapstructure:"client_secret"`
}

// AthleteConfig holds the fallback athlete profile. Stored field tests
// take precedence over these values.
type AthleteConfig struct {
	FTPWatts     float64 `json:"ftp_watts" mapstructure:"ftp_watts"`
	WeightKg     float64 `json:"weight_kg" mapstructure:"weight_kg"`
	BikeWeightKg float64 `json:"bike_weight_kg" mapstructure:"bike_weight_kg"`
	MaxHR        float64 `json:"max_hr" mapstructure:"max_hr"`
	RestingHR    float64 `json:"resting_hr" mapstructure:"resting_hr"`
	// SwimCSS is threshold pace per 100m, e.g. "1:45"
	SwimCSS string `json:"swim_css" mapstructure:"swim_css"`
	// RunThresholdPace is threshold pace per km, e.g. "4:30"
	RunThresholdPace string `json:"run_threshold_pace" mapstructure:"run_threshold_pace"`
}

// BikeConfig holds bike setup defaults for predictions
type BikeConfig struct {
	CdA           float64 `json:"cda" mapstructure:"cda"`
	Crr           float64 `json:"crr" mapstructure:"crr"`
	FTPPercentage float64 `json:"ftp_percentage" mapstructure:"ftp_percentage"`
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	DistanceUnit string `json:"distance_unit" mapstructure:"distance_unit"`
	PaceUnit     string `json:"pace_unit" mapstructure:"pace_unit"`
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Port int `json:"port" mapstructure:"port"`
}

// LogConfig holds log file rotation settings. An empty File means
// ~/.racecalc/racecalc.log.
type LogConfig struct {
	File       string `json:"file" mapstructure:"file"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Verbose    bool   `json:"verbose" mapstructure:"verbose"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Athlete: AthleteConfig{
			FTPWatts:     200,
			WeightKg:     70,
			BikeWeightKg: 9,
			MaxHR:        185,
			RestingHR:    50,
		},
		Bike: BikeConfig{
			CdA:           0.32,
			Crr:           0.004,
			FTPPercentage: 75,
		},
		Display: DisplayConfig{
			DistanceUnit: "km",
			PaceUnit:     "min/km",
		},
		Server: ServerConfig{Port: 8080},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// setDefaults registers every key so env overrides reach Unmarshal
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("strava.client_id", d.Strava.ClientID)
	v.SetDefault("strava.client_secret", d.Strava.ClientSecret)
	v.SetDefault("athlete.ftp_watts", d.Athlete.FTPWatts)
	v.SetDefault("athlete.weight_kg", d.Athlete.WeightKg)
	v.SetDefault("athlete.bike_weight_kg", d.Athlete.BikeWeightKg)
	v.SetDefault("athlete.max_hr", d.Athlete.MaxHR)
	v.SetDefault("athlete.resting_hr", d.Athlete.RestingHR)
	v.SetDefault("athlete.swim_css", d.Athlete.SwimCSS)
	v.SetDefault("athlete.run_threshold_pace", d.Athlete.RunThresholdPace)
	v.SetDefault("bike.cda", d.Bike.CdA)
	v.SetDefault("bike.crr", d.Bike.Crr)
	v.SetDefault("bike.ftp_percentage", d.Bike.FTPPercentage)
	v.SetDefault("display.distance_unit", d.Display.DistanceUnit)
	v.SetDefault("display.pace_unit", d.Display.PaceUnit)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.verbose", d.Log.Verbose)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads ~/.racecalc/config.json. A .env file in the config
// directory or the working directory is applied to the environment first.
func Load() (*Config, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}
	loadDotEnv(filepath.Join(dir, ".env"), ".env")
	return LoadFrom(filepath.Join(dir, "config.json"))
}

// LoadOrDefault is Load, falling back to defaults plus environment when
// there is no config file yet
func LoadOrDefault() (*Config, error) {
	cfg, err := Load()
	if errors.Is(err, ErrNoConfig) {
		return fromViper(newViper())
	}
	return cfg, err
}

// LoadFrom reads the config file at path with defaults and env overrides applied
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoConfig
	} else if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv applies the first .env file found; existing variables win
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Save writes the configuration to ~/.racecalc/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the configuration as indented JSON
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava = StravaConfig{
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
	}
	example.Athlete.SwimCSS = "1:45"
	example.Athlete.RunThresholdPace = "4:30"
	return SaveTo(path, &example)
}

// Validate checks the values the engine and outer layers depend on
func (c *Config) Validate() error {
	if c.Display.DistanceUnit != "" && c.Display.DistanceUnit != "km" && c.Display.DistanceUnit != "mi" {
		return fmt.Errorf("display.distance_unit must be \"km\" or \"mi\", got %q", c.Display.DistanceUnit)
	}
	if c.Display.PaceUnit != "" && c.Display.PaceUnit != "min/km" && c.Display.PaceUnit != "min/mi" {
		return fmt.Errorf("display.pace_unit must be \"min/km\" or \"min/mi\", got %q", c.Display.PaceUnit)
	}

	a := c.Athlete
	if a.FTPWatts < 0 || a.WeightKg < 0 || a.BikeWeightKg < 0 {
		return errors.New("athlete.ftp_watts, weight_kg and bike_weight_kg must not be negative")
	}
	if a.RestingHR > 0 && a.MaxHR > 0 && a.RestingHR >= a.MaxHR {
		return fmt.Errorf("athlete.resting_hr (%v) must be less than athlete.max_hr (%v)", a.RestingHR, a.MaxHR)
	}
	if a.SwimCSS != "" && !timefmt.IsValidFormat(a.SwimCSS) {
		return fmt.Errorf("athlete.swim_css %q is not a valid time", a.SwimCSS)
	}
	if a.RunThresholdPace != "" && !timefmt.IsValidFormat(a.RunThresholdPace) {
		return fmt.Errorf("athlete.run_threshold_pace %q is not a valid time", a.RunThresholdPace)
	}

	b := c.Bike
	if b.CdA <= 0 {
		return fmt.Errorf("bike.cda must be positive, got %v", b.CdA)
	}
	if b.Crr < 0 || b.Crr > 0.05 {
		return fmt.Errorf("bike.crr must be between 0 and 0.05, got %v", b.Crr)
	}
	if b.FTPPercentage <= 0 || b.FTPPercentage > 100 {
		return fmt.Errorf("bike.ftp_percentage must be in (0, 100], got %v", b.FTPPercentage)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	return nil
}

// RequireStrava checks the Strava credentials needed by auth and sync
func (c *Config) RequireStrava() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".racecalc"), nil
}
