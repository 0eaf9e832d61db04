package cli

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/berkan-cetinkaya/altcha-access/internal/config"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:          "altcha-access",
	Short:        "Headless client for ALTCHA-protected endpoints",
	Long:         "Solves the server's ALTCHA challenge the way the browser widget would and requests the protected resource with the resulting payload.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		if cmd.Flags().Changed("server") {
			return nil
		}
		settings, err := config.LoadSettings()
		if err != nil {
			return err
		}
		serverURL = settings.ServerURL
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:5000", "base URL of the protected server (default from ALTCHA_SERVER_URL)")
}

func endpointURL(path string) string {
	return strings.TrimRight(serverURL, "/") + path
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
