package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/berkan-cetinkaya/altcha-access/access"
)

var accessTimeout time.Duration

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Verify with the widget, then request the protected content once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if accessTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, accessTimeout)
			defer cancel()
		}
		out, err := runAccess(ctx, cmd.OutOrStdout(), endpointURL("/api/challenge"), endpointURL("/api/protected"))
		if err != nil {
			return err
		}
		if !out.Success {
			return fmt.Errorf("access denied: %s", out.Message)
		}
		return nil
	},
}

func init() {
	accessCmd.Flags().DurationVar(&accessTimeout, "timeout", 0, "overall deadline (0 = none)")
	rootCmd.AddCommand(accessCmd)
}

func runAccess(ctx context.Context, w io.Writer, challengeURL, protectedURL string) (access.Outcome, error) {
	c := access.New(access.NewConsoleUI(w), access.NewHTTPEndpoint(protectedURL))

	events := make(chan access.Event)
	loopErr := make(chan error, 1)
	go func() { loopErr <- c.Run(ctx, events) }()

	access.NewWidget(challengeURL).Run(ctx, events)

	done := make(chan access.Outcome, 1)
	select {
	case events <- access.AccessRequestedEvent{Done: done}:
	case <-ctx.Done():
		return access.Outcome{}, ctx.Err()
	}
	var out access.Outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		return access.Outcome{}, ctx.Err()
	}

	close(events)
	if err := <-loopErr; err != nil {
		return out, err
	}
	return out, nil
}
