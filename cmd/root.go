package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/allodoc/allodoc-backend/cmd/http"
	systemcmd "github.com/allodoc/allodoc-backend/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "allodoc",
	Short: "AlloDoc multi-tenant medical records platform.",
	Long: `AlloDoc is a multi-tenant medical records platform for clinics and
healthcare organizations. One deployment serves every organization, with
tenant isolation enforced at the session and authorization layers.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
}
