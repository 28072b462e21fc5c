package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/astralabs/astra-go/cmd"
	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/logging"
)

func main() {
	os.Exit(run())
}

// run keeps deferred cleanup working under os.Exit.
func run() int {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		return 1
	}

	logging.Init()
	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
