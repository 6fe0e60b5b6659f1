// Command ulta is the load-testing agent: it registers itself with the
// control plane, then either serves jobs in a loop or runs a single
// test id and exits with that test's own exit code.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ulta",
	Short: "ulta load-testing agent",
	Long: `ulta is a load-testing agent that polls a control plane for work,
drives a load generator against it, and reports status and artifacts back.

Available commands:
  serve   - poll the control plane and serve jobs until stopped (default)
  run     - run a single test id and exit with its result
  version - print build information`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.RunE = serveCmd.RunE
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
