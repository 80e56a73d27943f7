package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skyevents/internal/catalog"
	"skyevents/internal/config"
	"skyevents/internal/ics"
	"skyevents/internal/locale"
	appLog "skyevents/internal/log"
	"skyevents/internal/model"
	"skyevents/internal/status"
	"skyevents/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	month      string
	catalog    string
	ics        bool
	debug      bool
	now        string
	lang       string
	tasksFile  string
}

// taskStatus is the -once output for one task.
type taskStatus struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	model.Status
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	level := appLog.ParseLevel(conf.LogLevel)
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	// CLI overrides.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.lang != "" {
		conf.Language = flags.lang
	}
	if flags.tasksFile != "" {
		if err := addTasksFile(conf, flags.tasksFile); err != nil {
			appLog.Error("failed to load tasks file", err, "tasks_path", flags.tasksFile)
			os.Exit(1)
		}
	}

	appLog.Debug("effective config",
		"listen", conf.Listen,
		"source_utc_offset", conf.SourceOffset,
		"display_utc_offset", conf.DisplayOffset,
		"language", conf.Language,
		"refresh", conf.RefreshCron,
		"task_count", len(conf.Tasks),
	)

	switch {
	case flags.month != "":
		err = runCatalog(os.Stdout, conf, flags)
	case flags.once:
		err = runOnce(os.Stdout, conf, flags.now)
	default:
		err = runServer(conf)
	}
	if err != nil {
		appLog.Error("skyevents failed", err)
		os.Exit(1)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./skyevents.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Print every task's status as JSON and exit")
	flag.StringVar(&cfg.month, "month", "", "Print catalog rows for this month (YYYY-MM) and exit")
	flag.StringVar(&cfg.catalog, "catalog", catalog.DawnRedstoneName, "Catalog used with -month")
	flag.BoolVar(&cfg.ics, "ics", false, "With -month, print iCalendar instead of JSON")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.StringVar(&cfg.now, "now", "", "With -once, evaluate at this RFC 3339 instant")
	flag.StringVar(&cfg.lang, "lang", "", "Message language (overrides config if set)")
	flag.StringVar(&cfg.tasksFile, "tasks", "", "YAML file with extra tasks, appended to the configured ones")

	flag.Parse()

	return cfg
}

// addTasksFile appends the tasks listed in a stand-alone task file.
func addTasksFile(conf *config.Config, path string) error {
	specs, err := config.LoadTasks(path)
	if err != nil {
		return err
	}
	conf.Tasks = append(conf.Tasks, specs...)
	appLog.Info("loaded tasks file", "path", path, "count", len(specs))
	return nil
}

func runServer(conf *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLog.Info("skyevents starting", "listen", conf.Listen)
	if err := web.StartServer(ctx, conf); err != nil {
		return err
	}
	appLog.Info("skyevents exiting")
	return nil
}

func runOnce(w io.Writer, conf *config.Config, nowFlag string) error {
	now := time.Now()
	if nowFlag != "" {
		t, err := time.Parse(time.RFC3339, nowFlag)
		if err != nil {
			return fmt.Errorf("invalid -now %q: %w", nowFlag, err)
		}
		now = t
	}

	tasks := conf.BuildTasks()
	classifier := status.New(conf.Converter(), locale.New(conf.Language))
	statuses := classifier.ResolveAll(tasks, now)

	out := make([]taskStatus, 0, len(tasks))
	for i, st := range statuses {
		out = append(out, taskStatus{ID: tasks[i].ID, Name: tasks[i].Name, Status: st})
	}
	return writeJSON(w, out)
}

func runCatalog(w io.Writer, conf *config.Config, flags flagConfig) error {
	cat, ok := catalog.Lookup(flags.catalog)
	if !ok {
		return fmt.Errorf("unknown catalog %q (known: %v)", flags.catalog, catalog.Names())
	}
	t, err := time.Parse("2006-01", flags.month)
	if err != nil {
		return fmt.Errorf("invalid -month %q: expected YYYY-MM", flags.month)
	}

	if flags.ics {
		events := ics.CatalogEvents(cat, cat.Name(), t.Year(), t.Month(), conf.Converter().Source)
		return ics.Write(w, cat.Name(), events, time.Now())
	}
	return writeJSON(w, cat.Month(t.Year(), t.Month()))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
