package main

import (
	"fmt"
	"io"

	"github.com/fwojciec/lawdoc"
	"github.com/fwojciec/lawdoc/crawl"
)

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	mode := lawdoc.ModeFull
	if c.Test {
		mode = lawdoc.ModeTest
	}
	deps.Crawler.Force = c.Force
	return runCrawl(deps, c.Source, mode)
}

// Run executes the retry command.
func (c *RetryCmd) Run(deps *Dependencies) error {
	return runCrawl(deps, c.Source, lawdoc.ModeRetryFailed)
}

func runCrawl(deps *Dependencies, names []string, mode lawdoc.Mode) error {
	sources, err := selectSources(deps.Config, names)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", lawdoc.ErrorMessage(err))
		return err
	}

	result, err := deps.Crawler.Run(deps.Ctx, sources, mode, progressPrinter(deps.Stdout, deps.Stderr))
	if result != nil {
		fmt.Fprintf(deps.Stdout, "Completed %d, failed %d, skipped %d\n",
			result.Completed, result.Failed, result.Skipped)
		if result.Failed > 0 {
			fmt.Fprintln(deps.Stdout, "Run 'lawdoc failed' to see failures, 'lawdoc retry' to retry them.")
		}
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error crawling: %v\n", err)
		return err
	}
	return nil
}

// progressPrinter reports document outcomes on stdout and problems on
// stderr.
func progressPrinter(stdout, stderr io.Writer) crawl.ProgressFunc {
	return func(ev crawl.ProgressEvent) {
		switch ev.Phase {
		case crawl.PhaseSaved:
			fmt.Fprintf(stdout, "[%s] %d/%d saved %s %s\n",
				ev.Source, ev.Completed, ev.Total, ev.DocumentID, crawl.TruncateTitle(ev.Title, 40))
		case crawl.PhaseRetryQueued:
			fmt.Fprintf(stderr, "[%s] retry %s after attempt %d: %v\n",
				ev.Source, ev.DocumentID, ev.Attempt, ev.Err)
		case crawl.PhaseFailedTerminal:
			fmt.Fprintf(stderr, "[%s] failed %s after %d attempts: %v\n",
				ev.Source, ev.DocumentID, ev.Attempt, ev.Err)
		case crawl.PhaseDone:
			if ev.Err != nil {
				fmt.Fprintf(stderr, "[%s] stopped: %v\n", ev.Source, ev.Err)
			}
			fmt.Fprintf(stdout, "[%s] done: %d saved, %d failed\n", ev.Source, ev.Completed, ev.Failed)
		}
	}
}
