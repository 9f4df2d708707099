// Package config reads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayusman/posturelab/internal/posture"
)

// Config holds all runtime settings.
type Config struct {
	Addr      string
	DataDir   string
	WebDir    string
	PluginDir string

	CameraID        int
	StillThreshold  float64 // percent of changed pixels
	MonitorInterval time.Duration

	LogLevel string
	LogFile  string

	KafkaBrokers []string
	KafkaTopic   string

	DepthRatioLimit    float64
	DistinctSpineCurve bool

	PluginTimeout time.Duration
}

// Load reads the given .env files, then the environment. Missing files are
// skipped; an unreadable or malformed file is an error. Variables already
// set in the environment win over file values.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from POSTURELAB_* variables with defaults.
func FromEnv() Config {
	dataDir := getenv("POSTURELAB_DATA_DIR", defaultDataDir())

	return Config{
		Addr:      getenv("POSTURELAB_ADDR", ":8080"),
		DataDir:   dataDir,
		WebDir:    getenv("POSTURELAB_WEB_DIR", "web"),
		PluginDir: getenv("POSTURELAB_PLUGIN_DIR", filepath.Join(dataDir, "plugins")),

		CameraID:        getInt("POSTURELAB_CAMERA_ID", 0),
		StillThreshold:  getFloat("POSTURELAB_STILL_THRESHOLD", 1.0),
		MonitorInterval: getDuration("POSTURELAB_MONITOR_INTERVAL", 2*time.Second),

		LogLevel: getenv("POSTURELAB_LOG_LEVEL", "info"),
		LogFile:  os.Getenv("POSTURELAB_LOG_FILE"),

		KafkaBrokers: splitList(os.Getenv("POSTURELAB_KAFKA_BROKERS")),
		KafkaTopic:   getenv("POSTURELAB_KAFKA_TOPIC", "posture.analyses"),

		DepthRatioLimit:    getFloat("POSTURELAB_DEPTH_RATIO_LIMIT", 0),
		DistinctSpineCurve: getBool("POSTURELAB_DISTINCT_SPINE_CURVE", false),

		PluginTimeout: getDuration("POSTURELAB_PLUGIN_TIMEOUT", 5*time.Second),
	}
}

// Policy returns the analysis policy selected by the configuration.
func (c Config) Policy() posture.Policy {
	return posture.Policy{
		DepthRatioLimit:    c.DepthRatioLimit,
		DistinctSpineCurve: c.DistinctSpineCurve,
	}
}

// DBPath is the SQLite database location inside the data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "posturelab.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".posturelab"
	}
	return filepath.Join(home, ".posturelab")
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
