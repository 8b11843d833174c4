package main

import (
	"context"
	"io"

	"github.com/fwojciec/lawdoc"
	"github.com/fwojciec/lawdoc/crawl"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Config   *lawdoc.Config
	Ledger   lawdoc.Ledger
	Runs     lawdoc.RunService
	Adapters lawdoc.AdapterRegistry
	Crawler  *crawl.Crawler
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config      string `short:"c" type:"path" help:"YAML config file (defaults are used when omitted)"`
	Output      string `short:"o" type:"path" help:"Output directory (overrides output_dir)"`
	Workers     int    `short:"w" help:"Detail workers per source (overrides worker_concurrency)"`
	Verbose     bool   `short:"v" help:"Log every request and write"`
	MetricsAddr string `name:"metrics-addr" placeholder:"HOST:PORT" help:"Serve Prometheus metrics on this address"`

	Crawl   CrawlCmd   `cmd:"" help:"Crawl the enabled sources"`
	Retry   RetryCmd   `cmd:"" help:"Retry documents recorded as failed"`
	Failed  FailedCmd  `cmd:"" help:"List documents recorded as failed"`
	Sources SourcesCmd `cmd:"" help:"List configured sources and their progress"`
	Runs    RunsCmd    `cmd:"" help:"Show the history of runs"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	Test   bool     `short:"t" help:"Fetch one document per source"`
	Force  bool     `short:"f" help:"Re-crawl documents already marked as done"`
	Source []string `short:"s" name:"source" help:"Only crawl the named source (repeatable)"`
}

// RetryCmd is the "retry" subcommand.
type RetryCmd struct {
	Source []string `short:"s" name:"source" help:"Only retry failures of the named source (repeatable)"`
}

// FailedCmd is the "failed" subcommand.
type FailedCmd struct {
	Source string `short:"s" help:"Only list failures of the named source"`
}

// SourcesCmd is the "sources" subcommand.
type SourcesCmd struct{}

// RunsCmd is the "runs" subcommand.
type RunsCmd struct {
	Limit int `short:"n" default:"10" help:"Number of runs to show"`
}

// selectSources returns the enabled sources, narrowed to names when any
// are given. Naming a disabled source selects it anyway; repeated names
// select the source once.
func selectSources(cfg *lawdoc.Config, names []string) ([]lawdoc.SourceConfig, error) {
	if len(names) == 0 {
		return cfg.EnabledSources(), nil
	}

	var out []lawdoc.SourceConfig
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		src, ok := findSource(cfg, name)
		if !ok {
			return nil, lawdoc.Errorf(lawdoc.ECONFIG, "unknown source %q", name)
		}
		out = append(out, src)
	}
	return out, nil
}

func findSource(cfg *lawdoc.Config, name string) (lawdoc.SourceConfig, bool) {
	for _, s := range cfg.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return lawdoc.SourceConfig{}, false
}
