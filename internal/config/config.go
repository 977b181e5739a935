package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen          = "127.0.0.1:8080"
	defaultTimezone        = "UTC"
	defaultWeekStart       = "sunday"
	defaultRefreshCron     = "*/15 * * * *"
	defaultLogLevel        = "info"
	defaultCacheDir        = "/var/lib/calview/ics-cache"
	defaultMinSlotMinutes  = 15
	defaultDurationMinutes = 60
)

// ICSConfig describes a single ICS event source. Exactly one of URL or Path
// is expected; URL wins when both are set.
type ICSConfig struct {
	// ID is an internal identifier used for event IDs and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is an ICS subscription endpoint.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// Path is a local .ics file.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// Category is copied into every event payload from this source.
	Category string `yaml:"category,omitempty" json:"category,omitempty"`
}

// SourceID returns ID, falling back to Name, then URL or Path.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	case c.URL != "":
		return c.URL
	default:
		return c.Path
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// TimelineConfig controls week/day timeline layout.
type TimelineConfig struct {
	// MinSlotMinutes is the minimum rendered height of a slot, in minutes.
	MinSlotMinutes int `yaml:"min_slot_minutes" json:"min_slot_minutes"`
	// DefaultDurationMinutes is used for events without an end.
	DefaultDurationMinutes int `yaml:"default_duration_minutes" json:"default_duration_minutes"`
	// Lanes places overlapping events side by side instead of stacking them.
	Lanes bool `yaml:"lanes" json:"lanes"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone in which instants become calendar days.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is the first grid column: "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule for re-fetching ICS sources.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// CacheDir holds per-URL ICS HTTP caches.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Timeline TimelineConfig `yaml:"timeline" json:"timeline"`

	// ICS is the list of event sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		WeekStart:   defaultWeekStart,
		RefreshCron: defaultRefreshCron,
		LogLevel:    defaultLogLevel,
		CacheDir:    defaultCacheDir,
		Timeline: TimelineConfig{
			MinSlotMinutes:         defaultMinSlotMinutes,
			DefaultDurationMinutes: defaultDurationMinutes,
		},
		ICS: []ICSConfig{},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday":
		c.WeekStart = "monday"
	default:
		// Unknown values fall back to the Sunday-first reference layout.
		c.WeekStart = defaultWeekStart
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Timeline.MinSlotMinutes < 0 {
		// Any negative value disables the floor; -1 is its canonical form.
		c.Timeline.MinSlotMinutes = -1
	} else if c.Timeline.MinSlotMinutes == 0 {
		c.Timeline.MinSlotMinutes = defaultMinSlotMinutes
	}
	if c.Timeline.DefaultDurationMinutes <= 0 {
		c.Timeline.DefaultDurationMinutes = defaultDurationMinutes
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Location resolves Timezone. An unknown zone is returned as an error
// together with UTC so callers may log and continue.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC, fmt.Errorf("config: load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FirstWeekday returns the configured first column of the grid.
func (c *Config) FirstWeekday() time.Weekday {
	if strings.EqualFold(c.WeekStart, "monday") {
		return time.Monday
	}
	return time.Sunday
}

// MinSlotHeightPercent converts Timeline.MinSlotMinutes to a share of the
// 24-hour axis. Negative minutes disable the floor (negative result);
// zero means the engine default.
func (c *Config) MinSlotHeightPercent() float64 {
	switch {
	case c.Timeline.MinSlotMinutes < 0:
		return -1
	case c.Timeline.MinSlotMinutes == 0:
		return 0
	}
	return float64(c.Timeline.MinSlotMinutes) / (24 * 60) * 100
}

// DefaultDuration returns Timeline.DefaultDurationMinutes as a duration.
func (c *Config) DefaultDuration() time.Duration {
	return time.Duration(c.Timeline.DefaultDurationMinutes) * time.Minute
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is read, unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Caller decides whether a read-only location is fatal.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory with 0700 if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calview-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience wrapper around the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
