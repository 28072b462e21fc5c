// Package exchange implements the threat exchange export and import commands.
package exchange

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/datastore"
	"github.com/astralabs/astra-go/internal/exchange"
)

// peerFetchTimeout bounds the pull of an envelope from a peer instance.
const peerFetchTimeout = 30 * time.Second

var (
	exportLimit  int
	exportOutput string
	importFile   string
	importURL    string
)

// Command creates the exchange command with its export and import subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Export and import threat exchange envelopes",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export local threat indicators as a versioned envelope",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(settings)
		},
	}
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "Number of indicator groups to export (0 for the configured default)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write the envelope to a file instead of stdout")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import a threat exchange envelope from a file or a peer instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(settings)
		},
	}
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "Envelope file to import, - for stdin")
	importCmd.Flags().StringVar(&importURL, "url", "", "Peer base URL to pull an envelope from")

	cmd.AddCommand(exportCmd, importCmd)
	return cmd
}

func openStore(settings *conf.Settings) (datastore.Interface, error) {
	ds := datastore.New(settings)
	if ds == nil {
		return nil, fmt.Errorf("no database output enabled in configuration")
	}
	if err := ds.Open(); err != nil {
		return nil, fmt.Errorf("opening datastore: %w", err)
	}
	return ds, nil
}

func runExport(settings *conf.Settings) error {
	ds, err := openStore(settings)
	if err != nil {
		return err
	}
	defer func() { _ = ds.Close() }()

	service := exchange.NewService(ds, settings, nil)
	envelope, err := service.Export(exportLimit, settings.Main.BaseURL)
	if err != nil {
		return err
	}

	out := os.Stdout
	if exportOutput != "" {
		file, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("creating %s: %w", exportOutput, err)
		}
		defer file.Close()
		out = file
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(envelope)
}

func runImport(settings *conf.Settings) error {
	envelope, err := readEnvelope()
	if err != nil {
		return err
	}

	ds, err := openStore(settings)
	if err != nil {
		return err
	}
	defer func() { _ = ds.Close() }()

	service := exchange.NewService(ds, settings, nil)
	inserted, err := service.Import(envelope)
	if err != nil {
		return err
	}

	fmt.Printf("imported %d indicators from %s\n", inserted, envelope.Producer.InstanceID)
	return nil
}

// readEnvelope loads the envelope from the file flag, stdin or a peer's
// export endpoint.
func readEnvelope() (*exchange.Envelope, error) {
	switch {
	case importFile == "" && importURL == "":
		return nil, fmt.Errorf("either --file or --url is required")
	case importFile != "" && importURL != "":
		return nil, fmt.Errorf("--file and --url are mutually exclusive")
	case importURL != "":
		return fetchEnvelope(importURL)
	case importFile == "-":
		return decodeEnvelope(os.Stdin)
	default:
		file, err := os.Open(importFile)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", importFile, err)
		}
		defer file.Close()
		return decodeEnvelope(file)
	}
}

// fetchEnvelope pulls an envelope from a peer's export endpoint.
func fetchEnvelope(baseURL string) (*exchange.Envelope, error) {
	client := &http.Client{Timeout: peerFetchTimeout}
	resp, err := client.Get(baseURL + "/api/v1/exchange/export")
	if err != nil {
		return nil, fmt.Errorf("fetching envelope from peer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("peer returned status %d", resp.StatusCode)
	}
	return decodeEnvelope(resp.Body)
}

func decodeEnvelope(r io.Reader) (*exchange.Envelope, error) {
	var envelope exchange.Envelope
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	return &envelope, nil
}
