// Package config reads the process configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

type Config struct {
	Dataset  DatasetConfig
	Settings SettingsConfig
	Vision   VisionConfig
	Camera   CameraConfig
	Database DatabaseConfig
	Web      WebConfig
	Log      LogConfig
}

type DatasetConfig struct {
	Dir string // defaults to ./dataset
}

type SettingsConfig struct {
	Path string // defaults to ./settings.yaml
}

type VisionConfig struct {
	URL string // detector + embedder service, defaults to http://localhost:8000
}

type CameraConfig struct {
	FFmpegPath    string // defaults to ffmpeg
	InputFormat   string // ffmpeg -f value, defaults to v4l2
	DevicePattern string // printf pattern for the device path, defaults to /dev/video%d
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (optional, takes precedence over SQLitePath)
	SQLitePath   string // Embedded sightings journal, "off" disables the journal
	MaxOpenConns int    // Maximum open connections (default 10)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	AllowedOrigins string // comma-separated extra origins for CORS and WebSocket upgrades
}

type LogConfig struct {
	Level  string
	Format string // console or json
}

// Disabled reports whether the sightings journal was switched off.
func (c *DatabaseConfig) Disabled() bool {
	return c.URL == "" && (c.SQLitePath == "off" || c.SQLitePath == "none")
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Dir: envString("DATASET_DIR", "dataset"),
		},
		Settings: SettingsConfig{
			Path: envString("SETTINGS_PATH", "settings.yaml"),
		},
		Vision: VisionConfig{
			URL: envString("VISION_URL", "http://localhost:8000"),
		},
		Camera: CameraConfig{
			FFmpegPath:    envString("FFMPEG_PATH", "ffmpeg"),
			InputFormat:   envString("CAMERA_INPUT_FORMAT", "v4l2"),
			DevicePattern: envString("CAMERA_DEVICE_PATTERN", "/dev/video%d"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			SQLitePath:   envString("SIGHTINGS_DB_PATH", "sightings.db"),
			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "console"),
		},
	}
}
