package command

// root.go defines the root command of the bolt CLI and its global flags.

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	defaultAPIURL  = "http://127.0.0.1:8085"
	defaultPubAddr = "tcp://127.0.0.1:5556"
)

var apiURL string // Global flag for the HTTP trigger URL

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bolt",
	Short: "bolt - command publisher client",
	Long: `bolt talks to a running bolt-server. It can:
- listen on the publish endpoint and print every frame
- publish subscription-manager commands and heartbeats through the HTTP trigger

Use "bolt command --help" to see the flags of each command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultURL := defaultAPIURL
	if v := os.Getenv("BOLT_API_URL"); v != "" {
		defaultURL = v
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", defaultURL, "HTTP trigger URL")

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(sendCmd)
}
