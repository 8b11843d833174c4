package main

import (
	"fmt"

	"github.com/fwojciec/lawdoc"
)

// Run executes the sources command.
func (c *SourcesCmd) Run(deps *Dependencies) error {
	kinds := make(map[string]bool)
	for _, k := range deps.Adapters.Kinds() {
		kinds[k] = true
	}

	for _, src := range deps.Config.Sources {
		done, err := deps.Ledger.CompletedIDs(deps.Ctx, src.Name)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", lawdoc.ErrorMessage(err))
			return err
		}
		failures, err := deps.Ledger.FailedItems(deps.Ctx, src.Name)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", lawdoc.ErrorMessage(err))
			return err
		}

		state := "enabled"
		if !src.Enabled {
			state = "disabled"
		}
		adapter := src.Adapter
		if !kinds[adapter] {
			adapter += " (unknown)"
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  adapter=%s  %s  done=%d failed=%d\n",
			src.Name, state, adapter, src.BaseURL, len(done), len(failures))
	}

	return nil
}
