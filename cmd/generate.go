// Package cmd provides the command-line interface for proteus.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	outputFile string
	force      bool
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate sample configuration files",
	Long:  `Generate sample configuration files for the proteus SNMP polling engine.`,
	Example: `# Generate config to stdout
	proteus generate

	# Generate config to specific file
	proteus generate --output config.yaml

	# Overwrite existing file
	proteus generate --output config.yaml --force`,
	RunE: generateConfig,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: stdout)")
	generateCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing file")
}

func generateConfig(cmd *cobra.Command, args []string) error {
	// Create sample configuration YAML content
	configYAML := `# Proteus SNMP polling engine configuration
# This is a sample configuration file with default values and examples.
# Modify the values according to your environment and requirements.

snmp:
  timeout: "10s"
  retries: 3
  max_oids: 60

mib:
  directories:
    - "./mibs"
  max_file_size: 10485760
  enable_hot_reload: false

cache:
  enabled: true
  max_age: "10m"
  default_query_max_age: "10m"

store:
  connection_string: "./proteus_snapshots.db"
  retention_days: 30

logging:
  level: "info"
  format: "json"
`

	// Output to file or stdout
	if outputFile == "" {
		fmt.Print(configYAML)
		return nil
	}

	// Check if file exists and force flag
	if _, err := os.Stat(outputFile); err == nil && !force {
		return fmt.Errorf("file %s already exists, use --force to overwrite", outputFile)
	}

	// Create directory if needed
	if dir := filepath.Dir(outputFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Write to file
	if err := os.WriteFile(outputFile, []byte(configYAML), 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Printf("Configuration file generated: %s\n", outputFile)
	return nil
}
