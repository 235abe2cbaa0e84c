// internal/cli/login.go
package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Interactively log in to Facebook and persist the session",
	Long: `Opens a visible browser window on the Facebook login page so you can sign
in manually. The session is saved in the persistent browser profile, so
later serve and watch runs scrape without asking for credentials again.

Waits up to the configured login window (10 minutes by default) for the
login form to disappear before giving up.`,
	Example: `  # Log in and save the session to the default profile
  dingbot login`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	log.Info().Str("profile", application.Config.ProfileDir).Msg("Initiating login")
	fmt.Println("A browser window will open. Sign in to Facebook, then wait for this command to finish.")

	if err := application.Coordinator.Authenticate(); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	log.Info().Msg("Session saved")
	fmt.Println("✓ Logged in. The session is stored in the browser profile.")
	return nil
}
