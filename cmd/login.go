// cmd/login.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/minhltv/possync/internal/browser"
	"github.com/minhltv/possync/internal/config"
	"github.com/minhltv/possync/internal/observability"
)

// newLoginCmd creates the `login` command: authenticate and stop. Used to
// verify credentials and selectors, and with --wait to inspect the console
// manually through the automated session.
func newLoginCmd() *cobra.Command {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Logs in to the admin console and exits, without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			// Inspection is the point here; default to a visible window.
			if headless, _ := cmd.Flags().GetBool("headless"); !headless {
				cfg.Browser.Headless = false
			}

			creds, err := config.LoadCredentials(viper.GetViper())
			if err != nil {
				return err
			}

			session, err := browser.NewDriver(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer session.Close()

			if err := session.Login(ctx, creds); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			logger.Info("Login successful.")
			fmt.Println("Login successful.")

			if wait, _ := cmd.Flags().GetDuration("wait"); wait > 0 {
				logger.Info("Keeping the session open.", zap.Duration("wait", wait))
				if err := session.Sleep(ctx, wait); err != nil {
					return err
				}
			}
			return nil
		},
	}

	loginCmd.Flags().Bool("headless", false, "Run the login probe without a visible window.")
	loginCmd.Flags().Duration("wait", 0, "Keep the session open for this long after login.")

	return loginCmd
}
