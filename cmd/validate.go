// Package cmd provides the command-line interface for proteus.

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/geekxflood/common/config"
	"github.com/spf13/cobra"
)

var (
	checkMIBs bool
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and MIB directories",
	Long:  `Validate the configuration file and optionally check MIB directory accessibility.`,
	Example: `# Validate configuration file
	proteus validate --config config.yaml

	# Validate configuration and check MIB directories
	proteus validate --config config.yaml --check-mibs

	# Validate using default config locations
	proteus validate`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&checkMIBs, "check-mibs", false, "Also validate MIB directory accessibility")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	// Determine config file path
	configPath := cfgFile
	if configPath == "" {
		// Try default locations
		defaultPaths := []string{
			"config.yaml",
			"config.yml",
			"/etc/proteus/config.yaml",
			"/etc/proteus/config.yml",
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}

		if configPath == "" {
			return fmt.Errorf("no configuration file found in default locations")
		}
	}

	fmt.Printf("Validating configuration: %s\n", configPath)

	manager, err := config.NewManager(config.Options{
		SchemaPath: "cmd/schemas/config.cue",
		ConfigPath: configPath,
	})
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	defer manager.Close()

	fmt.Println("Configuration is valid")

	if !checkMIBs {
		return nil
	}

	dirs, err := manager.GetStringSlice("mib.directories")
	if err != nil || len(dirs) == 0 {
		fmt.Println("No MIB directories configured")
		return nil
	}

	var problems []string
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("%s: %v", dir, err))
		case !info.IsDir():
			problems = append(problems, fmt.Sprintf("%s: not a directory", dir))
		default:
			entries, err := os.ReadDir(dir)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", dir, err))
				continue
			}
			count := 0
			for _, entry := range entries {
				if strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
					count++
				}
			}
			fmt.Printf("MIB directory %s: %d JSON MIB files\n", dir, count)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("MIB directory problems:\n  %s", strings.Join(problems, "\n  "))
	}

	return nil
}
