package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/berkan-cetinkaya/altcha-access/access"
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Fetch and solve a challenge and print the payload",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := access.NewWidget(endpointURL("/api/challenge")).Verify(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), payload)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(solveCmd)
}
