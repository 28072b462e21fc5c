// Package ingest implements the one-shot content ingestion command.
package ingest

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/datastore"
	"github.com/astralabs/astra-go/internal/ingest"
)

// Command creates the ingest command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch content from the enabled connectors and store it as events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(settings)
		},
	}

	cmd.Flags().StringVar(&settings.Ingest.File.Path, "path", viper.GetString("ingest.file.path"), "Directory scanned by the file connector")
	cmd.Flags().StringSliceVar(&settings.Ingest.HTTP.URLs, "url", viper.GetStringSlice("ingest.http.urls"), "Page fetched by the HTTP connector")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}

	return cmd
}

func runIngest(settings *conf.Settings) error {
	connectors := ingest.Connectors(settings)
	if len(connectors) == 0 {
		return fmt.Errorf("no ingest connectors enabled, set ingest.file.enabled or ingest.http.enabled")
	}

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

	publisher := ingest.NewPublisher(ds, nil)
	total, err := publisher.Run(ctx, connectors)
	if err != nil {
		return err
	}

	fmt.Printf("ingested %d events\n", total)
	return nil
}
