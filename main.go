package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"hrmetrics/internal/config"
	"hrmetrics/internal/dataset"
	"hrmetrics/internal/service"
	"hrmetrics/internal/store"
	"hrmetrics/internal/summary"
	"hrmetrics/internal/table"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	importData bool
	calculate  bool
	report     bool
	all        bool
	configPath string
	verbose    bool
}

func parseFlags() options {
	var o options
	flag.BoolVar(&o.importData, "import", false, "load the CSV activity and stream tables into SQLite")
	flag.BoolVar(&o.calculate, "calculate", false, "compute per-activity metrics and write the metrics table")
	flag.BoolVar(&o.report, "report", false, "print a summary of the metrics table")
	flag.BoolVar(&o.all, "all", false, "run every step: import (sqlite source only), calculate, report")
	flag.StringVar(&o.configPath, "config", "", "path to config file (default ~/.hrmetrics/config.json)")
	flag.BoolVar(&o.verbose, "v", false, "verbose logging")
	flag.Parse()
	return o
}

// steps is the set of pipeline steps a run executes
type steps struct {
	importData bool
	calculate  bool
	report     bool
}

// plan resolves the flags against the configured data source. Import only
// feeds the SQLite store, so -all skips it for CSV input.
func (o options) plan(source string) steps {
	return steps{
		importData: o.importData || (o.all && source == config.SourceSQLite),
		calculate:  o.calculate || o.all,
		report:     o.report || o.all,
	}
}

func (s steps) none() bool {
	return !s.importData && !s.calculate && !s.report
}

func run() error {
	opts := parseFlags()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if opts.plan(config.SourceCSV).none() {
		flag.Usage()
		return nil
	}

	cfg, err := loadConfig(opts.configPath, os.Stdout)
	if err != nil {
		return err
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, logger: logger, out: os.Stdout}
	defer a.close()

	return a.execute(ctx, opts.plan(cfg.Data.Source))
}

// loadConfig reads the config file. Without an explicit path a missing file
// is replaced by an example and the defaults are used.
func loadConfig(path string, out io.Writer) (*config.Config, error) {
	if path != "" {
		cfg, err := config.LoadFrom(path)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
		return cfg, nil
	}

	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Fprintln(out, "No config file found. Creating example config...")
		if err := config.CreateExample(); err != nil {
			return nil, fmt.Errorf("creating example config: %w", err)
		}
		configDir, _ := config.GetConfigDir()
		fmt.Fprintf(out, "Using defaults. Edit the config file at:\n  %s/config.json\n\n", configDir)
		defaults := config.DefaultConfig()
		return &defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

var errNotImported = errors.New("no data imported: run with -import first")

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	db     *store.DB
}

func (a *app) execute(ctx context.Context, s steps) error {
	if s.importData {
		if err := a.importData(ctx); err != nil {
			return err
		}
	}
	if s.calculate {
		if err := a.calculate(ctx); err != nil {
			return err
		}
	}
	if s.report {
		if err := a.report(); err != nil {
			return err
		}
	}
	return nil
}

// database opens the SQLite store on first use
func (a *app) database() (*store.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	path, err := a.cfg.DatabaseFile()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("reading schema version: %w", err)
	}
	a.logger.Debug("database ready", "path", path, "schema_version", version, "dirty", dirty)

	a.db = db
	return db, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) importData(ctx context.Context) error {
	db, err := a.database()
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Importing activities and streams...")
	progress := make(chan service.Progress)
	done := showProgress(progress)

	result, err := service.NewImportService(db, a.logger).ImportAll(ctx, a.cfg.ActivitiesPath(), a.cfg.StreamsPath(), progress)
	<-done
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	fmt.Fprintf(a.out, "Imported %d activities and %d samples across %d streams (%d activities stored)\n",
		result.ActivitiesStored, result.SamplesStored, result.StreamsStored, result.TotalActivities)
	for _, e := range result.Errors {
		fmt.Fprintf(a.out, "  warning: %v\n", e)
	}
	return nil
}

func (a *app) calculate(ctx context.Context) error {
	catalog, streams, err := a.sources()
	if err != nil {
		return err
	}

	opts := service.Options{
		Settings:      a.cfg.Settings(),
		Workers:       a.cfg.Analysis.Workers,
		ActivityTypes: a.cfg.Analysis.ActivityTypes,
		Logger:        a.logger,
	}
	var db *store.DB
	if a.cfg.Storage.SaveMetrics {
		if db, err = a.database(); err != nil {
			return err
		}
		opts.Sink = db
	}

	fmt.Fprintln(a.out, "Calculating metrics...")
	progress := make(chan service.Progress)
	done := showProgress(progress)

	result, err := service.NewMetricsService(catalog, streams, opts).Calculate(ctx, progress)
	<-done
	if err != nil {
		return fmt.Errorf("calculating metrics: %w", err)
	}

	if result.Computed == 0 {
		fmt.Fprintln(a.out, "No qualifying activities found; writing an empty metrics table.")
	}

	path := a.cfg.MetricsPath()
	if err := table.WriteCSV(path, table.Normalize(result.Rows)); err != nil {
		return fmt.Errorf("writing metrics table: %w", err)
	}

	fmt.Fprintf(a.out, "Computed metrics for %d of %d activities -> %s\n", result.Computed, result.Considered, path)
	reasons := make([]string, 0, len(result.Skipped))
	for reason := range result.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(a.out, "  skipped %d (%s)\n", result.Skipped[reason], reason)
	}

	if db != nil {
		n, err := db.CountMetrics()
		if err != nil {
			return fmt.Errorf("counting stored metrics: %w", err)
		}
		fmt.Fprintf(a.out, "Stored %d metrics rows as run %s\n", n, result.RunID)
	}
	return nil
}

// sources returns the catalog and streams for the configured data source
func (a *app) sources() (service.Catalog, service.StreamSource, error) {
	if a.cfg.Data.Source == config.SourceSQLite {
		db, err := a.database()
		if err != nil {
			return nil, nil, err
		}
		imported, ok, err := db.LastImport()
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, errNotImported
		}
		a.logger.Debug("using imported data", "imported_at", imported)
		return db, db, nil
	}

	catalog, err := dataset.LoadCatalog(a.cfg.ActivitiesPath())
	if err != nil {
		return nil, nil, fmt.Errorf("loading activities: %w", err)
	}
	streams, err := dataset.LoadStreams(a.cfg.StreamsPath())
	if err != nil {
		return nil, nil, fmt.Errorf("loading streams: %w", err)
	}
	a.logger.Debug("inputs loaded", "activities", catalog.Len(), "samples", streams.Rows())
	return catalog, streams, nil
}

func (a *app) report() error {
	s, err := a.summarize()
	if err != nil {
		return err
	}
	return summary.Print(a.out, s, time.Now())
}

// summarize reads the latest metrics. With the sqlite source and saved
// metrics the stored run is used, keeping undefined values distinct from zero.
func (a *app) summarize() (summary.Summary, error) {
	if a.cfg.Data.Source == config.SourceSQLite && a.cfg.Storage.SaveMetrics {
		db, err := a.database()
		if err != nil {
			return summary.Summary{}, err
		}
		run, err := db.LatestRun()
		if errors.Is(err, store.ErrNoRuns) {
			return summary.Summary{}, fmt.Errorf("%w: run with -calculate first", err)
		}
		if err != nil {
			return summary.Summary{}, fmt.Errorf("reading latest run: %w", err)
		}
		metrics, err := db.ListMetrics()
		if err != nil {
			return summary.Summary{}, fmt.Errorf("reading stored metrics: %w", err)
		}
		return summary.FromMetrics(metrics, run, summary.DefaultLatest), nil
	}

	rows, err := table.ReadCSV(a.cfg.MetricsPath())
	if errors.Is(err, table.ErrNoMetricsTable) {
		return summary.Summary{}, fmt.Errorf("%w: run with -calculate first", err)
	}
	if err != nil {
		return summary.Summary{}, err
	}
	return summary.Build(rows, summary.DefaultLatest), nil
}

// showProgress drains progress, redrawing a status line on terminals.
// The returned channel is closed once progress is closed.
func showProgress(progress <-chan service.Progress) <-chan struct{} {
	done := make(chan struct{})
	tty := isatty.IsTerminal(os.Stdout.Fd())

	go func() {
		defer close(done)
		drawn := false
		for p := range progress {
			if !tty || p.Total == 0 {
				continue
			}
			fmt.Printf("\r  %s: %d/%d", p.Phase, p.Completed, p.Total)
			drawn = true
		}
		if drawn {
			fmt.Println()
		}
	}()

	return done
}
