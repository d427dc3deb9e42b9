package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tekstlab/interlink/internal/cli"
	"github.com/tekstlab/interlink/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "interlinkd",
		Short: "Interlink daemon and CLI",
		Long:  "Interlink daemon for serving the link pipeline API and driving runs locally",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.RunCmd())
	rootCmd.AddCommand(admin.StatusCmd())
	rootCmd.AddCommand(admin.CancelCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
