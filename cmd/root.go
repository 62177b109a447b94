// Package cmd provides the command-line interface for proteus.
package cmd

import (
	"fmt"
	"os"

	"github.com/geekxflood/common/config"
	"github.com/geekxflood/common/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	version = "dev" // Will be set by build flags
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "proteus",
	Version: version,
	Short:   "SNMP table polling and MIB resolution engine",
	Long: `Proteus polls SNMP tables from network devices over v2c or v3, resolves the
raw values against JSON MIB definitions, and caches resolved table data with
per-table time-to-live semantics.`,
	Example: `# Query the interface table of a device
	proteus query IF-MIB ifTable --host 192.0.2.1 --community public

	# Query over SNMPv3, bypassing the cache
	proteus query IF-MIB ifTable --host 192.0.2.1 --user admin --auth sha1 --auth-pass secret --no-cache

	# List loaded MIB definitions
	proteus mibs --config config.yaml

	# Validate configuration and MIB directories
	proteus validate --config config.yaml`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path")
}

func loadConfig() (config.Manager, error) {
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
	}

	options := config.Options{
		SchemaPath: "cmd/schemas/config.cue",
		ConfigPath: configPath,
	}

	manager, err := config.NewManager(options)
	if err != nil {
		return nil, fmt.Errorf("failed to create configuration manager: %w", err)
	}

	return manager, nil
}

func newLogger(cfg config.Provider) (logging.Logger, error) {
	level, _ := cfg.GetString("logging.level", "info")
	format, _ := cfg.GetString("logging.format", "json")

	logger, _, err := logging.NewLogger(logging.Config{
		Level:  level,
		Format: format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
