package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/lawdoc"
)

// Run executes the runs command.
func (c *RunsCmd) Run(deps *Dependencies) error {
	runs, err := deps.Runs.FindRuns(deps.Ctx, c.Limit)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", lawdoc.ErrorMessage(err))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No runs yet. Use 'lawdoc crawl' to start one.")
		return nil
	}

	for _, r := range runs {
		took := "running"
		if !r.FinishedAt.IsZero() {
			took = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %s  [%s]  %s  completed=%d failed=%d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Mode,
			strings.Join(r.Sources, ","), took, r.Completed, r.Failed)
		if r.Err != "" {
			fmt.Fprintf(deps.Stdout, "    %s\n", r.Err)
		}
	}

	return nil
}
