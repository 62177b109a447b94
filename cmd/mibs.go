// Package cmd provides the command-line interface for proteus.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geekxflood/proteus/internal/schema"
)

// mibsCmd represents the mibs command
var mibsCmd = &cobra.Command{
	Use:   "mibs",
	Short: "List loaded MIB definitions",
	Long:  `Load the configured MIB directories and list each MIB with its object count.`,
	Example: `# List MIBs from the configured directories
	proteus mibs --config config.yaml`,
	RunE: listMIBs,
}

func init() {
	rootCmd.AddCommand(mibsCmd)
}

func listMIBs(cmd *cobra.Command, args []string) error {
	manager, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	defer manager.Close()

	logger, err := newLogger(manager)
	if err != nil {
		return err
	}

	source, err := schema.NewDirSource(manager, logger)
	if err != nil {
		return fmt.Errorf("failed to create MIB source: %w", err)
	}

	schemas, err := schema.NewStore(logger)
	if err != nil {
		return err
	}
	if err := schemas.Load(source); err != nil {
		return fmt.Errorf("failed to load MIB definitions: %w", err)
	}

	names := schemas.MIBNames()
	for _, name := range names {
		fmt.Printf("%s (%d objects)\n", name, schemas.ObjectCount(name))
	}

	stats := schemas.GetStats()
	fmt.Printf("\n%d MIBs, %d objects, %d cross-MIB references resolved\n",
		stats.MIBsLoaded, stats.ObjectsLoaded, stats.ReferencesResolved)

	return nil
}
