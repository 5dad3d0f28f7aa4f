package cmd

import (
	"fmt"
	"os"

	"vocab-loader/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "vocab-loader",
	Short: "OMOP CDM custom vocabulary loader",
	Long: `vocab-loader reconciles custom vocabularies, concept classes, concepts and
source-to-concept maps held in versioned TSV files with an OMOP CDM database.
Only vocabularies whose version changed are reloaded.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Report through the standard logger in console format (CLI tool)
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
