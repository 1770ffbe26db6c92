package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	jsonpool "github.com/ajitpratap0/nebula-snowflake/pkg/json"
	"github.com/ajitpratap0/nebula-snowflake/pkg/node"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "snowflake-node",
		Short: "Snowflake workflow node",
		Long: `snowflake-node runs the Snowflake workflow node outside a workflow engine.
It executes queries, inserts and updates against Snowflake for a JSON array of input items
and writes the resulting items as JSON.`,
		SilenceUsage: true,
	}

	var configFile string
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "node.yaml", "Path to the node configuration YAML file")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("snowflake-node v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "describe",
		Short: "Print the node description as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return jsonpool.MarshalToWriter(cmd.OutOrStdout(), node.Describe(), "  ")
		},
	})

	var inputFile, outputFile string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the configured operation",
		Long: `Execute the configured operation over the input items.

Example:
  snowflake-node run --config node.yaml --input items.json --output result.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd.Context(), configFile, inputFile, outputFile)
		},
	}
	runCmd.Flags().StringVarP(&inputFile, "input", "i", "-", "Input items JSON file, - for stdin")
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Output items JSON file, - for stdout")
	root.AddCommand(runCmd)

	root.AddCommand(&cobra.Command{
		Use:   "test-credentials",
		Short: "Open and close a session with the configured credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return testCredentials(cmd.Context(), configFile)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a configuration template",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(configFile, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	root.AddCommand(initCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
