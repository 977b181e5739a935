package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"calview/internal/capture"
	"calview/internal/config"
	"calview/internal/events"
	"calview/internal/ics"
	appLog "calview/internal/log"
	"calview/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	snapshot   string
	debug      bool
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("calview starting", "version", version)

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.debug {
		conf.CacheDir = "./cache/ics"
	} else {
		appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	}

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("invalid timezone; using UTC", err)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"lanes", conf.Timeline.Lanes,
		"ics_count", len(conf.ICS),
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := events.NewStore()
	fetcher := ics.NewFetcher(conf.CacheDir, &http.Client{Timeout: 30 * time.Second})
	refresher := events.NewRefresher(store, fetcher, events.SourcesFromConfig(conf.ICS), loc, conf.RefreshCron)

	switch {
	case flags.once:
		if err := refresher.RefreshNow(ctx); err != nil {
			appLog.Error("refresh failed", err)
			os.Exit(1)
		}
		appLog.Info("single refresh complete", "events", store.Len())
	case flags.snapshot != "":
		if err := runSnapshot(ctx, conf, store, refresher, flags.snapshot); err != nil {
			appLog.Error("snapshot failed", err, "path", flags.snapshot)
			os.Exit(1)
		}
	default:
		if err := serve(ctx, conf, store, refresher, previewPath(conf, flags.debug)); err != nil {
			appLog.Error("server stopped with error", err)
			os.Exit(1)
		}
	}
	appLog.Info("calview exiting")
}

// serve binds the listener, runs the refresher and serves until ctx is
// cancelled. After every successful refresh the calendar page is captured
// to preview so /preview.png tracks the latest events.
func serve(ctx context.Context, conf *config.Config, store *events.Store, refresher *events.Refresher, preview string) error {
	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return err
	}
	refresher.OnRefresh(capture.Hook(captureOptions(conf, ln.Addr(), preview)))

	refreshErr := make(chan error, 1)
	go func() { refreshErr <- refresher.Run(ctx) }()

	srv := web.NewServer(conf, store, web.Options{PreviewPath: preview})
	if err := srv.Serve(ctx, ln); err != nil {
		return err
	}
	return <-refreshErr
}

// captureOptions targets the /calendar page of the server bound at addr.
func captureOptions(conf *config.Config, addr net.Addr, path string) capture.Options {
	opts := capture.Options{
		BaseURL:    capture.BaseURLFor(addr),
		OutputPath: path,
	}
	if conf.BasicAuth != nil {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}
	return opts
}

// runSnapshot refreshes once, serves the calendar page on a loopback port
// and captures it to path.
func runSnapshot(ctx context.Context, conf *config.Config, store *events.Store, refresher *events.Refresher, path string) error {
	if err := refresher.RefreshNow(ctx); err != nil {
		appLog.Warn("refresh failed; capturing with empty calendar", "error", err.Error())
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           web.NewServer(conf, store, web.Options{PreviewPath: path}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("snapshot server failed", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return capture.CapturePNG(ctx, captureOptions(conf, ln.Addr(), path))
}

// previewPath mirrors the cache layout: the PNG sits next to the ICS cache
// directory, or under ./cache in debug mode.
func previewPath(conf *config.Config, debug bool) string {
	if debug {
		return "./cache/preview.png"
	}
	return filepath.Join(filepath.Dir(conf.CacheDir), "preview.png")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/calview/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Refresh events once and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Capture the calendar page to this PNG path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging and ./cache paths")

	flag.Parse()

	return cfg
}
