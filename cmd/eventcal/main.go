package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"eventcal/internal/calendar"
	"eventcal/internal/config"
	"eventcal/internal/ics"
	appLog "eventcal/internal/log"
	"eventcal/internal/scheduler"
	"eventcal/internal/storage"
	"eventcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	importFrom string
	exportTo   string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("eventcal starting", "version", "0.1.0")

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"storage_driver", conf.Storage.Driver,
		"storage_path", conf.Storage.Path,
		"export_cron", conf.Export.Cron,
		"export_path", conf.Export.Path,
		"basic_auth", conf.BasicAuth != nil,
	)

	blobs, err := storage.Open(conf.Storage.Driver, conf.Storage.Path)
	if err != nil {
		appLog.Error("failed to open storage", err, "driver", conf.Storage.Driver)
		os.Exit(1)
	}
	if c, ok := blobs.(io.Closer); ok {
		defer c.Close()
	}

	store := calendar.NewStore(calendar.Options{Blobs: blobs, Key: conf.Storage.Key})
	store.Load()

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// One-shot modes run and exit without starting the server.
	if flags.importFrom != "" || flags.exportTo != "" {
		if err := runOnce(ctx, conf, store, flags); err != nil {
			appLog.Error("one-shot run failed", err)
			os.Exit(1)
		}
		return
	}

	sched, err := scheduler.New(ctx, scheduler.Job{
		Name: "ics-export",
		Spec: conf.Export.Cron,
		Run: func(context.Context) error {
			return ics.WriteFile(conf.Export.Path, conf.CalendarName, store.Events(), time.Now())
		},
	})
	if err != nil {
		appLog.Error("failed to start scheduler", err)
		os.Exit(1)
	}
	if sched.Len() > 0 {
		sched.Start()
		defer sched.Stop()
	}

	srv := web.NewServer(conf, store)
	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("http server stopped", err)
		os.Exit(1)
	}

	appLog.Info("eventcal exiting")
}

func runOnce(ctx context.Context, conf *config.Config, store *calendar.Store, flags flagConfig) error {
	if flags.importFrom != "" {
		body, err := readSource(ctx, flags.importFrom, filepath.Join(filepath.Dir(conf.Export.Path), "cache"))
		if err != nil {
			return err
		}
		events, err := ics.Import(body)
		if err != nil {
			return err
		}
		added := store.Import(events)
		appLog.Info("imported events", "source", flags.importFrom, "count", len(added))
	}

	if flags.exportTo != "" {
		if err := ics.WriteFile(flags.exportTo, conf.CalendarName, store.Events(), time.Now()); err != nil {
			return err
		}
		appLog.Info("exported events", "path", flags.exportTo, "count", len(store.Events()))
	}
	return nil
}

// readSource loads an ICS payload from a local path or an http(s) URL.
func readSource(ctx context.Context, src, cacheDir string) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return ics.NewFetcher(cacheDir).Fetch(ctx, src)
	}
	return os.ReadFile(src)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./eventcal.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.importFrom, "import", "", "Import events from an .ics file or URL and exit")
	flag.StringVar(&cfg.exportTo, "export", "", "Export base events to an .ics file and exit")

	flag.Parse()

	return cfg
}
