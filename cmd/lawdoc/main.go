package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/lawdoc"
	"github.com/fwojciec/lawdoc/bloom"
	"github.com/fwojciec/lawdoc/crawl"
	"github.com/fwojciec/lawdoc/docx"
	"github.com/fwojciec/lawdoc/fs"
	"github.com/fwojciec/lawdoc/goquery"
	"github.com/fwojciec/lawdoc/htmltomarkdown"
	lawhttp "github.com/fwojciec/lawdoc/http"
	"github.com/fwojciec/lawdoc/markdown"
	"github.com/fwojciec/lawdoc/prometheus"
	"github.com/fwojciec/lawdoc/readability"
	"github.com/fwojciec/lawdoc/rod"
	lawslog "github.com/fwojciec/lawdoc/slog"
	"github.com/fwojciec/lawdoc/sqlite"
	"github.com/fwojciec/lawdoc/text"
	"github.com/fwojciec/lawdoc/trafilatura"
	"github.com/fwojciec/lawdoc/yaml"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Config is loaded from the --config file, or the defaults, during Run.
	Config *lawdoc.Config

	// SQLite database holding the ledger and run history.
	DB *sqlite.DB

	Metrics *prometheus.Metrics

	metricsServer *nethttp.Server
}

// NewMain returns a new instance of Main.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	var errs []error
	if m.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, m.metricsServer.Shutdown(ctx))
	}
	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}
	return errors.Join(errs...)
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("lawdoc"),
		kong.Description("Crawl MNR regulatory documents into JSON, Markdown and DOCX"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'lawdoc --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", lawdoc.ErrorMessage(err))
		return err
	}
	m.Config = cfg
	deps.Config = cfg

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	dbPath := cfg.LedgerPath
	if dbPath == "" {
		dbPath = filepath.Join(cfg.OutputDir, lawdoc.DefaultLedgerFile)
	}
	m.DB = sqlite.NewDB(dbPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set ledger_path in the config file to use a different ledger\n")
		return fmt.Errorf("failed to open ledger at %q: %w", dbPath, err)
	}
	defer m.Close()

	m.Metrics = prometheus.NewMetrics()
	if cli.MetricsAddr != "" {
		if err := m.serveMetrics(cli.MetricsAddr, logger); err != nil {
			return err
		}
	}

	var ledger lawdoc.Ledger = sqlite.NewLedger(m.DB)
	ledger = bloom.NewCachedLedger(ledger)
	ledger = prometheus.NewMetricsLedger(ledger, m.Metrics)
	ledger = lawslog.NewLoggingLedger(ledger, logger)

	deps.Ledger = ledger
	deps.Runs = sqlite.NewRunService(m.DB)
	deps.Adapters = lawslog.NewLoggingRegistry(newRegistry(cfg), logger)

	if command := kongCtx.Command(); command == "crawl" || command == "retry" {
		conv := htmltomarkdown.NewConverter()
		writer := fs.NewWriter(cfg.OutputDir,
			fs.WithFormats(cfg.Formats),
			fs.WithMarkdown(markdown.NewFormatter(conv)),
			fs.WithDOCX(docx.NewFormatter(conv)),
		)

		crawler := crawl.NewCrawler(cfg)
		crawler.Adapters = deps.Adapters
		crawler.Sessions = lawslog.NewLoggingSessionFactory(
			prometheus.NewMetricsSessionFactory(newSessionFactory(cfg), m.Metrics),
			logger,
		)
		crawler.Ledger = ledger
		crawler.Writer = lawslog.NewLoggingWriter(writer, logger)
		crawler.Runs = deps.Runs
		deps.Crawler = crawler
	}

	return kongCtx.Run(deps)
}

// serveMetrics exposes the metrics registry on addr until Close.
func (m *Main) serveMetrics(addr string, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %q: %w", addr, err)
	}

	mux := nethttp.NewServeMux()
	mux.Handle("/metrics", m.Metrics.Handler())
	m.metricsServer = &nethttp.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := m.metricsServer.Serve(ln); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Error("metrics server", "addr", addr, "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

// loadConfig reads the config file, or starts from the defaults, and
// applies the command-line overrides.
func loadConfig(cli *CLI) (*lawdoc.Config, error) {
	cfg := lawdoc.DefaultConfig()
	if cli.Config != "" {
		var err error
		if cfg, err = yaml.LoadConfig(cli.Config); err != nil {
			return nil, err
		}
	}

	if cli.Output != "" {
		cfg.OutputDir = cli.Output
	}
	if cli.Workers > 0 {
		cfg.WorkerConcurrency = cli.Workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newRegistry creates the portal adapters. Pages whose body containers are
// not recognized fall back to trafilatura, then readability.
func newRegistry(cfg *lawdoc.Config) *goquery.Registry {
	words := append(text.LabelWords(text.DefaultLabels), cfg.DespliceWords...)
	fillers := append(append([]string{}, text.DefaultFillers...), cfg.DespliceFillers...)

	return goquery.NewRegistry(
		goquery.WithFallbackExtractors(trafilatura.NewExtractor(), readability.NewExtractor()),
		goquery.WithDesplicer(text.NewDesplicer(words, fillers)),
	)
}

// newSessionFactory opens plain HTTP sessions, or browser sessions for
// sources marked render. Each session gets its own politeness limiter.
func newSessionFactory(cfg *lawdoc.Config) lawdoc.SessionFactory {
	newLimiter := func() lawdoc.DomainLimiter {
		return crawl.NewDelayLimiter(cfg.RequestDelay)
	}
	plain := &lawhttp.SessionFactory{
		Options: []lawhttp.Option{
			lawhttp.WithTimeout(cfg.Timeout),
			lawhttp.WithUserAgents(cfg.UserAgents),
			lawhttp.WithProxy(cfg.Proxy),
			lawhttp.WithRobots(cfg.RespectRobots),
		},
		NewLimiter: newLimiter,
	}
	render := &rod.SessionFactory{
		ManagerOptions: []rod.ManagerOption{rod.WithBrowserProxy(cfg.Proxy)},
		Options: []rod.Option{
			rod.WithTimeout(cfg.Timeout),
			rod.WithUserAgents(cfg.UserAgents),
		},
		NewLimiter: newLimiter,
		Downloads:  plain,
	}
	return &sessionRouter{plain: plain, render: render}
}

// sessionRouter picks a session factory by the source's render flag.
type sessionRouter struct {
	plain  lawdoc.SessionFactory
	render lawdoc.SessionFactory
}

func (r *sessionRouter) NewSession(src *lawdoc.SourceConfig) (lawdoc.Session, error) {
	if src.Render {
		return r.render.NewSession(src)
	}
	return r.plain.NewSession(src)
}
