// Package process implements the one-shot detection batch command.
package process

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/astralabs/astra-go/internal/analysis"
	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/datastore"
	"github.com/astralabs/astra-go/internal/detector"
)

// Command creates the process command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run detection over all pending content events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(settings)
		},
	}
}

// runProcess runs a single detection batch and prints the summary. An
// interrupt aborts the batch, leaving unstarted events pending.
func runProcess(settings *conf.Settings) error {
	ds := datastore.New(settings)
	if ds == nil {
		return fmt.Errorf("no database output enabled in configuration")
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer func() { _ = ds.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	detectors := detector.NewManagerFromSettings(settings)
	orchestrator := analysis.NewOrchestrator(ds, detectors, settings, nil)

	summary, err := orchestrator.ProcessPending(ctx)
	if err != nil {
		return fmt.Errorf("processing pending events: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}
