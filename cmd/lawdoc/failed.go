package main

import (
	"fmt"

	"github.com/fwojciec/lawdoc"
	"github.com/fwojciec/lawdoc/crawl"
)

// Run executes the failed command.
func (c *FailedCmd) Run(deps *Dependencies) error {
	failures, err := deps.Ledger.FailedItems(deps.Ctx, c.Source)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", lawdoc.ErrorMessage(err))
		return err
	}

	if len(failures) == 0 {
		fmt.Fprintln(deps.Stdout, "No failed documents.")
		return nil
	}

	for _, f := range failures {
		state := "retryable"
		if f.Terminal {
			state = "terminal"
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %d attempts (%s)  %s  %s\n",
			f.Stub.SourceID, f.Stub.DocumentID, f.AttemptCount, state,
			f.LastAttempt.Local().Format("2006-01-02 15:04"), crawl.TruncateTitle(f.Stub.Title, 40))
		fmt.Fprintf(deps.Stdout, "    %s  %s\n", crawl.TruncateURL(f.Stub.DetailURL, 60), f.LastError)
	}
	fmt.Fprintf(deps.Stdout, "%d failed documents. Run 'lawdoc retry' to retry them.\n", len(failures))

	return nil
}
