// internal/cli/root.go
package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wordforest/dingbot/internal/app"
	"github.com/wordforest/dingbot/internal/config"
)

// application is the shared instance initialized before any command runs.
var application *app.Application

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "dingbot",
	Short:   "Marketplace watch: scrape, classify, and alert on hot listings",
	Long: `DingBot watches a client-side rendered marketplace for listings matching
your queries, merges the recent and suggested scans into one prioritized
list, and alerts when hot items first appear.`,
	Version: "2.0.0",
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.RegisterFlags(rootCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if application != nil {
			return nil
		}

		cfg, err := config.Load(rootCmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.JobTimeout)
		defer cancel()
		application, err = app.New(ctx, cfg)
		return err
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if application == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), application.Config.JobTimeout)
		defer cancel()
		if err := application.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("Error during shutdown")
		}
		application = nil
	}

	// Console logging until config is loaded.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
