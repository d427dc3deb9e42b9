package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tekstlab/interlink/internal/cli"
	"github.com/tekstlab/interlink/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "interlink",
		Short: "Interlink CLI - internal link proposals for content corpora",
		Long: `Interlink CLI drives the link pipeline daemon over its JSON API.

Environment variables:
  INTERLINK_API_TOKEN   API token for authentication
  INTERLINK_API_URL     API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().String("api-token", "", "API token for authentication (overrides env)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.StartCmd())
	rootCmd.AddCommand(client.TickCmd())
	rootCmd.AddCommand(client.StatusCmd())
	rootCmd.AddCommand(client.CancelCmd())
	rootCmd.AddCommand(client.LinksCmd())
	rootCmd.AddCommand(client.RejectCmd())
	rootCmd.AddCommand(client.RestoreCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
