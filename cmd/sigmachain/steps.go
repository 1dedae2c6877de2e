// ABOUTME: `sigmachain steps` lists the step catalog and the configured pipeline order.
package main

import (
	"fmt"

	"github.com/saicharanallam/sigmachain/steps"
	"github.com/saicharanallam/sigmachain/tui"
	"github.com/spf13/cobra"
)

func (c *cli) stepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List available steps and the configured pipeline",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			catalog := steps.DefaultCatalog(steps.Dependencies{})
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderStepCatalog(catalog.Entries(), c.cfg.Pipeline.Steps))
		},
	}
}
