// internal/cli/serve.go
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wordforest/dingbot/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP crawl API for the dashboard to poll",
	Long: `Starts the HTTP boundary exposing GET /crawl. The dashboard polls it on
its own refresh interval; every request runs the recent+suggested scrape
pair per query term through the single serialized browser channel.`,
	Example: `  # Serve on the default address
  dingbot serve

  # Serve on a custom port with debug logging
  dingbot serve --listen 127.0.0.1:9000 -v`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	srv := server.New(application.Config.ListenAddr, application, application.Uptime)

	// Shut the server down on interrupt so PostRun can drain the
	// coordinator afterwards.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn().Msg("Interrupt received, stopping HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("HTTP server shutdown error")
		}
	}()

	return srv.ListenAndServe()
}
