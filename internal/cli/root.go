// Package cli implements the lexi command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/lexi-backend/internal/app"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

var (
	cfg app.Config
	log *logger.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "lexi",
	Short:         "Secure legal document RAG backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := app.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		l, err := logger.New(loaded.LogMode)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		cfg, log = loaded, l
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		exitErr(err)
	}
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
