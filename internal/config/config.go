// Package config loads, normalizes and saves the YAML service configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"skyevents/internal/catalog"
	"skyevents/internal/locale"
	appLog "skyevents/internal/log"
	"skyevents/internal/model"
	"skyevents/internal/tz"
)

const (
	defaultListen  = "127.0.0.1:8080"
	defaultRefresh = "* * * * *"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// RecurrenceSpec is the YAML form of model.RecurrenceRule.
type RecurrenceSpec struct {
	Type         string   `yaml:"type" json:"type"`
	StartTimes   []string `yaml:"startTimes,omitempty" json:"startTimes,omitempty"`
	StartTime    string   `yaml:"startTime,omitempty" json:"startTime,omitempty"`
	Duration     int64    `yaml:"duration" json:"duration"`
	DurationUnit string   `yaml:"durationUnit" json:"durationUnit"`
	Weekdays     []string `yaml:"weekdays,omitempty" json:"weekdays,omitempty"`
	MonthDays    []int    `yaml:"monthDays,omitempty" json:"monthDays,omitempty"`
	Catalog      string   `yaml:"catalog,omitempty" json:"catalog,omitempty"`
}

// TaskSpec is one entry of the task catalog as written in YAML.
type TaskSpec struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`

	Recurrence RecurrenceSpec `yaml:"recurrence" json:"recurrence"`

	// StartDate is "YYYY-MM-DD". StartTime is "HH:MM" or an RFC 3339
	// instant, read in the source timezone.
	StartDate string `yaml:"startDate,omitempty" json:"startDate,omitempty"`
	StartTime string `yaml:"startTime,omitempty" json:"startTime,omitempty"`

	DisplayThreshold     int64  `yaml:"displayThreshold" json:"displayThreshold"`
	DisplayThresholdUnit string `yaml:"displayThresholdUnit" json:"displayThresholdUnit"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// SourceOffset is the fixed UTC offset task times are written in,
	// e.g. "-08:00". DisplayOffset is the one statuses are shown in.
	SourceOffset  string `yaml:"source_utc_offset" json:"source_utc_offset"`
	DisplayOffset string `yaml:"display_utc_offset" json:"display_utc_offset"`

	// Language selects the message catalog ("zh-Hans" or "en").
	Language string `yaml:"language" json:"language"`

	// LogLevel is one of "debug", "info", "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a standard 5-field cron spec for the status snapshot.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Tasks []TaskSpec `yaml:"tasks" json:"tasks"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        defaultListen,
		SourceOffset:  tz.FormatOffset(tz.DefaultSourceOffset),
		DisplayOffset: tz.FormatOffset(tz.DefaultDisplayOffset),
		Language:      locale.DefaultLanguage,
		LogLevel:      "info",
		RefreshCron:   defaultRefresh,
		Tasks:         DefaultTasks(),
	}
}

// DefaultTasks is the sample catalog written on first run.
func DefaultTasks() []TaskSpec {
	return []TaskSpec{
		{
			ID:   "daily-three-windows",
			Name: "每日活动",
			Recurrence: RecurrenceSpec{
				Type:         string(model.RuleDaily),
				StartTimes:   []string{"10:00", "14:00", "18:00"},
				Duration:     3,
				DurationUnit: "hours",
			},
			DisplayThreshold:     2,
			DisplayThresholdUnit: "hours",
		},
		{
			ID:   catalog.DawnRedstoneName,
			Name: "晨岛红石",
			Recurrence: RecurrenceSpec{
				Type:    string(model.RuleCatalog),
				Catalog: catalog.DawnRedstoneName,
			},
			DisplayThreshold:     1,
			DisplayThresholdUnit: "hours",
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	c.SourceOffset = normalizeOffset("source_utc_offset", c.SourceOffset, tz.DefaultSourceOffset)
	c.DisplayOffset = normalizeOffset("display_utc_offset", c.DisplayOffset, tz.DefaultDisplayOffset)
	if c.Language == "" {
		c.Language = locale.DefaultLanguage
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = "info"
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		if c.RefreshCron != "" {
			appLog.Error("config: invalid refresh spec, using default", err, "value", c.RefreshCron)
		}
		c.RefreshCron = defaultRefresh
	}
	if c.Tasks == nil {
		c.Tasks = []TaskSpec{}
	}
}

// normalizeOffset returns value in canonical "+08:00" form, or def when
// value is empty or unparsable.
func normalizeOffset(key, value string, def time.Duration) string {
	if strings.TrimSpace(value) == "" {
		return tz.FormatOffset(def)
	}
	d, err := tz.ParseOffset(value)
	if err != nil {
		appLog.Error("config: invalid offset, using default", err, "key", key, "value", value)
		return tz.FormatOffset(def)
	}
	return tz.FormatOffset(d)
}

// Converter builds the timezone converter from the configured offsets.
// Offsets are assumed to have passed Normalize.
func (c *Config) Converter() tz.Converter {
	src, err := tz.ParseOffset(c.SourceOffset)
	if err != nil {
		src = tz.DefaultSourceOffset
	}
	disp, err := tz.ParseOffset(c.DisplayOffset)
	if err != nil {
		disp = tz.DefaultDisplayOffset
	}
	return tz.New(src, disp)
}

// BuildTasks converts the configured task specs. Entries that cannot be
// parsed or fail validation are logged and skipped; the rest keep their
// order.
func (c *Config) BuildTasks() []model.Task {
	source := c.Converter().Source
	tasks := make([]model.Task, 0, len(c.Tasks))
	for i, spec := range c.Tasks {
		task, err := spec.Task(source)
		if err == nil {
			err = task.Validate()
		}
		if err != nil {
			appLog.Error("config: skipping task", err, "index", i, "id", spec.ID)
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// Task converts s into a model.Task. Times of day are read in source.
func (s TaskSpec) Task(source *time.Location) (model.Task, error) {
	r := s.Recurrence
	task := model.Task{
		ID:   s.ID,
		Name: s.Name,
		Recurrence: model.RecurrenceRule{
			Kind:         model.RuleKind(strings.ToLower(strings.TrimSpace(r.Type))),
			Duration:     r.Duration,
			DurationUnit: r.DurationUnit,
			MonthDays:    r.MonthDays,
			Catalog:      r.Catalog,
		},
		DisplayThreshold:     s.DisplayThreshold,
		DisplayThresholdUnit: s.DisplayThresholdUnit,
	}
	if task.Recurrence.Kind == "" {
		task.Recurrence.Kind = model.RuleNone
	}

	starts := r.StartTimes
	if len(starts) == 0 && r.StartTime != "" {
		starts = []string{r.StartTime}
	}
	for _, v := range starts {
		p, err := model.ParseTimeOfDayIn(v, source)
		if err != nil {
			return model.Task{}, fmt.Errorf("%w: task %q: %v", model.ErrMalformedTask, s.ID, err)
		}
		task.Recurrence.StartTimes = append(task.Recurrence.StartTimes, p)
	}

	for _, v := range r.Weekdays {
		wd, err := model.ParseWeekday(v)
		if err != nil {
			return model.Task{}, fmt.Errorf("%w: task %q: %v", model.ErrMalformedTask, s.ID, err)
		}
		task.Recurrence.Weekdays = append(task.Recurrence.Weekdays, wd)
	}

	if s.StartDate != "" {
		d, err := model.ParseDate(s.StartDate)
		if err != nil {
			return model.Task{}, fmt.Errorf("%w: task %q: %v", model.ErrMalformedTask, s.ID, err)
		}
		task.StartDate = d
	}
	if s.StartTime != "" {
		// An RFC 3339 start time also supplies the date when none is set.
		if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(s.StartTime)); err == nil && task.StartDate.IsZero() {
			task.StartDate = model.DateOf(ts.In(source))
		}
		p, err := model.ParseTimeOfDayIn(s.StartTime, source)
		if err != nil {
			return model.Task{}, fmt.Errorf("%w: task %q: %v", model.ErrMalformedTask, s.ID, err)
		}
		task.StartTime = &p
	}
	return task, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			appLog.Info("config: wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// taskFile is the layout of a stand-alone task catalog.
type taskFile struct {
	Tasks []TaskSpec `yaml:"tasks"`
}

// LoadTasks reads a stand-alone task file (a top-level "tasks" list) and
// returns the raw specs.
func LoadTasks(path string) ([]TaskSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f taskFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tasks %s: %w", path, err)
	}
	return f.Tasks, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	tmp, err := os.CreateTemp(dir, ".skyevents-config-*.tmp")
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

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
