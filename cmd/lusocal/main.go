package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lusocal/internal/calendar"
	"lusocal/internal/catalog"
	"lusocal/internal/config"
	"lusocal/internal/ics"
	appLog "lusocal/internal/log"
	"lusocal/internal/metrics"
	"lusocal/internal/scheduler"
	"lusocal/internal/web"
)

const version = "0.3.0"

type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
	once       bool
	dump       string
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		appLog.Warn("failed to read .env", "error", err)
	}

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv()
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("lusocal starting",
		"version", version,
		"listen", conf.Listen,
		"refresh", conf.RefreshCron,
		"catalog", conf.Catalog,
		"feeds", len(conf.Feeds),
		"upcoming_limit", conf.UpcomingLimit,
		"once", flags.once,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("lusocal exiting with error", err)
		os.Exit(1)
	}
	appLog.Info("lusocal exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	obs, err := metrics.NewObserver("lusocal", prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	synth := calendar.NewSynthesizer(
		calendar.WithObserver(obs),
		calendar.WithUpcomingLimit(conf.UpcomingLimit),
		calendar.WithMemoSize(conf.QueryCacheSize),
	)
	provider := calendar.NewProvider(newSource(conf), synth)

	if err := provider.Refresh(ctx); err != nil {
		if flags.once {
			return err
		}
		appLog.Warn("initial refresh failed; serving empty calendar until next run", "error", err)
	}

	if flags.dump != "" {
		if err := dump(provider.Current(), flags.dump); err != nil {
			return err
		}
	}
	if flags.once {
		printSummary(provider.Current())
		return nil
	}

	sched, err := scheduler.New(conf.RefreshCron, provider, 0)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	srv := web.NewServer(conf, provider, web.WithMetrics(obs, promhttp.Handler()))
	return srv.Serve(ctx)
}

// newSource loads the catalog file and the community feeds on every
// refresh, so edits are picked up without a restart.
func newSource(conf *config.Config) calendar.Source {
	fetcher := ics.NewFetcher(conf.FeedCacheDir)
	feeds := make([]ics.Feed, 0, len(conf.Feeds))
	for _, f := range conf.Feeds {
		feeds = append(feeds, ics.Feed{ID: f.ID, Name: f.Name, URL: f.URL})
	}

	return func(ctx context.Context) (calendar.Inputs, error) {
		cat, err := catalog.Load(conf.Catalog)
		if err != nil {
			return calendar.Inputs{}, err
		}
		window := calendar.WindowFor(time.Now())
		external, errs := ics.Collect(ctx, fetcher, feeds, window.Start, window.End)
		if len(errs) > 0 {
			appLog.Warn("some feeds were skipped", "failed", len(errs), "feeds", len(feeds))
		}
		return calendar.Inputs{Catalog: cat, External: external}, nil
	}
}

func dump(snap *calendar.Snapshot, path string) error {
	body := ics.Export(snap.Events(), web.CalendarName, snap.BuiltAt())
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("dump ics: %w", err)
	}
	appLog.Info("calendar written", "path", path, "events", snap.Len())
	return nil
}

func printSummary(snap *calendar.Snapshot) {
	st := snap.Stats()
	r := snap.Report()
	fmt.Printf("snapshot %s: %d events (%s .. %s)\n",
		snap.ID(), st.Total, r.Window.Start.Format("2006-01-02"), r.Window.End.Format("2006-01-02"))
	for t, n := range st.ByType {
		fmt.Printf("  %-12s %d\n", t, n)
	}
	for _, s := range r.Skipped {
		fmt.Printf("  skipped: %v\n", s)
	}
	for _, ev := range snap.Upcoming() {
		fmt.Printf("  %s %s  %s\n", ev.Date.Format("2006-01-02"), ev.StartTime, ev.Title.EN)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	defaultConfig := os.Getenv(config.EnvConfig)
	if defaultConfig == "" {
		defaultConfig = "/etc/lusocal/config.yaml"
	}

	flag.StringVar(&cfg.configPath, "config", defaultConfig, "Path to config file (env "+config.EnvConfig+")")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "", "debug|info|warn|error (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Build the calendar once, print a summary and exit")
	flag.StringVar(&cfg.dump, "dump", "", "Write the built calendar as iCalendar to this path")

	flag.Parse()
	return cfg
}
