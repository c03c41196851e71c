package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 50.0, cfg.Athlete.RestingHR)
	assert.Equal(t, 185.0, cfg.Athlete.MaxHR)
	assert.Equal(t, 0.32, cfg.Bike.CdA)
	assert.Equal(t, 0.004, cfg.Bike.Crr)
	assert.Equal(t, "km", cfg.Display.DistanceUnit)
	assert.Equal(t, "min/km", cfg.Display.PaceUnit)
	assert.Equal(t, 8080, cfg.Server.Port)

	// Strava config should be empty by default
	assert.Empty(t, cfg.Strava.ClientID)
	assert.Empty(t, cfg.Strava.ClientSecret)

	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{"defaults", func(*Config) {}, ""},
		{"miles", func(c *Config) { c.Display.DistanceUnit, c.Display.PaceUnit = "mi", "min/mi" }, ""},
		{"bad distance unit", func(c *Config) { c.Display.DistanceUnit = "furlong" }, "distance_unit"},
		{"bad pace unit", func(c *Config) { c.Display.PaceUnit = "s/m" }, "pace_unit"},
		{"resting above max", func(c *Config) { c.Athlete.RestingHR = 190 }, "resting_hr"},
		{"negative weight", func(c *Config) { c.Athlete.WeightKg = -1 }, "weight_kg"},
		{"bad css", func(c *Config) { c.Athlete.SwimCSS = "1:75" }, "swim_css"},
		{"valid css", func(c *Config) { c.Athlete.SwimCSS = "1:45" }, ""},
		{"bad run pace", func(c *Config) { c.Athlete.RunThresholdPace = "fast" }, "run_threshold_pace"},
		{"zero cda", func(c *Config) { c.Bike.CdA = 0 }, "bike.cda"},
		{"crr too high", func(c *Config) { c.Bike.Crr = 0.1 }, "bike.crr"},
		{"ftp percentage over 100", func(c *Config) { c.Bike.FTPPercentage = 110 }, "ftp_percentage"},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestRequireStrava(t *testing.T) {
	tests := []struct {
		name        string
		strava      StravaConfig
		errContains string
	}{
		{"valid", StravaConfig{ClientID: "12345", ClientSecret: "abc123secret"}, ""},
		{"empty client ID", StravaConfig{ClientSecret: "abc123secret"}, "client_id"},
		{"placeholder client ID", StravaConfig{ClientID: "YOUR_CLIENT_ID", ClientSecret: "abc"}, "client_id"},
		{"empty client secret", StravaConfig{ClientID: "12345"}, "client_secret"},
		{"both placeholders", StravaConfig{ClientID: "YOUR_CLIENT_ID", ClientSecret: "YOUR_CLIENT_SECRET"}, "client_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Strava: tt.strava}
			err := cfg.RequireStrava()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	assert.ErrorIs(t, err, ErrNoConfig)
}

func TestSaveAndLoadFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "racecalc", "config.json")

	cfg := DefaultConfig()
	cfg.Strava = StravaConfig{ClientID: "42", ClientSecret: "s3cret"}
	cfg.Athlete.FTPWatts = 265
	cfg.Athlete.SwimCSS = "1:38"
	cfg.Bike.CdA = 0.27
	require.NoError(t, SaveTo(path, &cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, *loaded)
}

func TestLoadFromAppliesDefaultsAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	partial := `{"athlete": {"ftp_watts": 240}, "display": {"distance_unit": "mi"}}`
	require.NoError(t, os.WriteFile(path, []byte(partial), 0600))

	t.Setenv("RACECALC_ATHLETE_WEIGHT_KG", "63.5")
	t.Setenv("RACECALC_SERVER_PORT", "9090")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 240.0, cfg.Athlete.FTPWatts)
	assert.Equal(t, "mi", cfg.Display.DistanceUnit)
	assert.Equal(t, "min/km", cfg.Display.PaceUnit, "missing keys take defaults")
	assert.Equal(t, 63.5, cfg.Athlete.WeightKg)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadFromRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoConfig)
}

func TestLoadDotEnvKeepsExistingVariables(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("RACECALC_TEST_DOTENV=from-file\nRACECALC_TEST_KEEP=from-file\n"), 0600))

	t.Setenv("RACECALC_TEST_KEEP", "from-env")
	t.Setenv("RACECALC_TEST_DOTENV", "")
	os.Unsetenv("RACECALC_TEST_DOTENV")

	loadDotEnv(filepath.Join(dir, "missing.env"), envFile)

	assert.Equal(t, "from-file", os.Getenv("RACECALC_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("RACECALC_TEST_KEEP"))
	os.Unsetenv("RACECALC_TEST_DOTENV")
}
