package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/astralabs/astra-go/cmd/exchange"
	"github.com/astralabs/astra-go/cmd/ingest"
	"github.com/astralabs/astra-go/cmd/process"
	"github.com/astralabs/astra-go/cmd/serve"
	"github.com/astralabs/astra-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "astra",
		Short: "ASTRA AI content detection pipeline",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		serve.Command(settings),
		process.Command(settings),
		exchange.Command(settings),
		ingest.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags configures the global flags for the root command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	cmd.PersistentFlags().StringVar(&settings.Detection.Detector, "detector", viper.GetString("detection.detector"), "Active detector (heuristic, retrieval, remote)")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}
