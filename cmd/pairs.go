// cmd/pairs.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/minhltv/possync/internal/updater"
)

// newPairsCmd creates the `pairs` command: an ad-hoc batch given inline on
// the command line, for one-off fixes without assembling a workbook.
func newPairsCmd() *cobra.Command {
	pairsCmd := &cobra.Command{
		Use:   "pairs EMPLOYEE_ID=POS_ID [EMPLOYEE_ID=POS_ID...]",
		Short: "Updates POS codes for pairs given directly on the command line",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("updater.retries", cmd.Flags().Lookup("retries")); err != nil {
				return err
			}
			if err := viper.BindPFlag("updater.retry_backoff", cmd.Flags().Lookup("backoff")); err != nil {
				return err
			}
			if err := viper.BindPFlag("updater.step_delay", cmd.Flags().Lookup("step-delay")); err != nil {
				return err
			}
			return viper.BindPFlag("browser.slowmo", cmd.Flags().Lookup("slowmo"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			rows, err := parsePairArgs(args)
			if err != nil {
				return err
			}

			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return executeBatch(cmd, cfg, rows, dryRun)
		},
	}

	pairsCmd.Flags().Bool("dry-run", false, "Validate and report the pairs without touching the console.")
	addBatchFlags(pairsCmd)

	return pairsCmd
}

// parsePairArgs turns EMPLOYEE_ID=POS_ID arguments into update requests,
// preserving argument order.
func parsePairArgs(args []string) ([]updater.UpdateRequest, error) {
	rows := make([]updater.UpdateRequest, 0, len(args))
	for _, arg := range args {
		employeeID, posID, found := strings.Cut(arg, "=")
		employeeID = strings.TrimSpace(employeeID)
		posID = strings.TrimSpace(posID)
		if !found || employeeID == "" || posID == "" {
			return nil, fmt.Errorf("invalid pair %q: expected EMPLOYEE_ID=POS_ID", arg)
		}
		rows = append(rows, updater.UpdateRequest{EmployeeID: employeeID, PosID: posID})
	}
	return rows, nil
}
