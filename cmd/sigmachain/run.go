// ABOUTME: `sigmachain run` executes one workflow from the command line.
// ABOUTME: Prints a summary, JSON, or YAML, or follows the run live in a terminal UI.
package main

import (
	"encoding/json"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/saicharanallam/sigmachain/pipeline"
	"github.com/saicharanallam/sigmachain/report"
	"github.com/saicharanallam/sigmachain/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runFailedError reports a workflow that finished without completing.
type runFailedError struct {
	run *pipeline.WorkflowRun
}

func (e *runFailedError) Error() string {
	if e.run.Error != "" {
		return fmt.Sprintf("workflow %s %s: %s", e.run.ID, e.run.Status, e.run.Error)
	}
	return fmt.Sprintf("workflow %s %s", e.run.ID, e.run.Status)
}

func (c *cli) runCmd() *cobra.Command {
	var (
		output string
		useTUI bool
	)
	cmd := &cobra.Command{
		Use:   "run <prompt...>",
		Short: "Run one workflow over a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unknown output format %q (want text, json, or yaml)", output)
			}
			prompt := strings.Join(args, " ")

			logger, err := c.newLogger(useTUI)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			a, err := newApp(c.cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(a, logger)

			var run *pipeline.WorkflowRun
			if useTUI {
				run, err = runWithTUI(cmd, a, prompt)
				if err != nil {
					return err
				}
			} else {
				run = a.engine.Execute(cmd.Context(), prompt)
			}
			logger.Debug("workflow finished", zap.String("workflow_id", run.ID), zap.String("status", string(run.Status)))

			if err := printRun(cmd, output, run); err != nil {
				return err
			}
			if run.Status != pipeline.StatusCompleted {
				return &runFailedError{run: run}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json, or yaml")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "follow the run in a terminal UI")
	return cmd
}

// runWithTUI drives the run from a bubbletea program fed by engine events.
func runWithTUI(cmd *cobra.Command, a *app, prompt string) (*pipeline.WorkflowRun, error) {
	names := make([]string, 0, len(a.engine.Steps()))
	for _, s := range a.engine.Steps() {
		names = append(names, s.Name)
	}
	model := tui.NewAppModel(cmd.Context(), a.engine, prompt, names)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	bridge := tui.NewEventBridge(program.Send)
	a.engine.SetEventHandler(bridge.HandleEvent)
	defer a.engine.SetEventHandler(nil)

	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("terminal ui: %w", err)
	}
	run := final.(tui.AppModel).Run()
	if run == nil {
		return nil, fmt.Errorf("terminal ui closed before the workflow finished")
	}
	return run, nil
}

func printRun(cmd *cobra.Command, output string, run *pipeline.WorkflowRun) error {
	out := cmd.OutOrStdout()
	switch output {
	case "json":
		data, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "yaml":
		data, err := report.YAML(run)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	default:
		_, err := fmt.Fprintln(out, tui.RenderSummary(run))
		return err
	}
}
