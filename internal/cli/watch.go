// internal/cli/watch.go
package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scrape on a fixed interval and email alerts for new hot items",
	Long: `Runs the alert cycle immediately and then on every tick of the configured
interval: scrape all query terms, merge and classify, and email any hot
items that have not been alerted on within the last seven days.`,
	Example: `  # Watch the default queries every 3 minutes
  dingbot watch

  # Watch custom queries in Toronto every 10 minutes
  dingbot watch --city Toronto --query "Horror VHS,Tube Amp" --interval 10m`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval := application.Config.WatchInterval

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	log.Info().Dur("interval", interval).Str("city", application.Config.City).
		Str("queries", application.Config.Queries).Msg("Starting watch cycle")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		application.RunAlertCycle()

		if done := countdown(interval, ticker.C, sigCh); done {
			log.Warn().Msg("Interrupt received, stopping watch")
			return nil
		}
	}
}

// countdown renders a progress bar until the next tick so the terminal
// shows time remaining to the next auto scrape. Returns true on interrupt.
func countdown(interval time.Duration, tick <-chan time.Time, sigCh <-chan os.Signal) bool {
	bar := progressbar.NewOptions(int(interval.Seconds()),
		progressbar.OptionSetDescription("next auto scrape"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Clear()

	second := time.NewTicker(time.Second)
	defer second.Stop()

	for {
		select {
		case <-tick:
			return false
		case <-second.C:
			_ = bar.Add(1)
		case <-sigCh:
			return true
		}
	}
}
