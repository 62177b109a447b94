package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/geekxflood/proteus/internal/cache"
	"github.com/geekxflood/proteus/internal/creds"
	"github.com/geekxflood/proteus/internal/schema"
	"github.com/geekxflood/proteus/internal/transport"
)

var (
	queryHost     string
	queryPort     int
	queryV6       bool
	queryNoCache  bool
	queryMaxAge   time.Duration
	community     string
	v3User        string
	v3Auth        string
	v3AuthPass    string
	v3Priv        string
	v3PrivPass    string
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query MIB TABLE",
	Short: "Query an SNMP table and print the resolved rows",
	Long: `Query a table from a device, resolve the raw values against the loaded MIB
definitions, and print the resolved rows as JSON.`,
	Example: `# SNMPv2c query
	proteus query IF-MIB ifTable --host 192.0.2.1 --community public

	# SNMPv3 query with authentication and privacy
	proteus query IF-MIB ifTable --host 192.0.2.1 --user admin \
		--auth sha1 --auth-pass secret --priv aes-128 --priv-pass secret2

	# Force a live poll with a 5 minute cache TTL for later queries
	proteus query IF-MIB ifTable --host 192.0.2.1 --no-cache --max-age 5m`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVar(&queryHost, "host", "", "Device host name or address")
	queryCmd.Flags().IntVar(&queryPort, "port", 161, "Device SNMP port")
	queryCmd.Flags().BoolVar(&queryV6, "v6", false, "Connect over IPv6")
	queryCmd.Flags().BoolVar(&queryNoCache, "no-cache", false, "Force a live poll even if cached data is fresh")
	queryCmd.Flags().DurationVar(&queryMaxAge, "max-age", 0, "Cache TTL for this table (default from configuration)")
	queryCmd.Flags().StringVar(&community, "community", "public", "SNMPv2c community string")
	queryCmd.Flags().StringVar(&v3User, "user", "", "SNMPv3 user name (enables v3)")
	queryCmd.Flags().StringVar(&v3Auth, "auth", "", "SNMPv3 auth algorithm (md5, sha1)")
	queryCmd.Flags().StringVar(&v3AuthPass, "auth-pass", "", "SNMPv3 auth passphrase")
	queryCmd.Flags().StringVar(&v3Priv, "priv", "", "SNMPv3 privacy algorithm (des, aes-128)")
	queryCmd.Flags().StringVar(&v3PrivPass, "priv-pass", "", "SNMPv3 privacy passphrase")

	_ = queryCmd.MarkFlagRequired("host")
}

func runQuery(cmd *cobra.Command, args []string) error {
	mib, table := args[0], args[1]

	manager, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	defer manager.Close()

	logger, err := newLogger(manager)
	if err != nil {
		return err
	}

	credential, err := buildCredential()
	if err != nil {
		return err
	}
	logger.Info("querying device", "host", queryHost, "port", queryPort, "credential", credential.String())

	client, err := transport.NewClient(queryHost, uint16(queryPort), queryV6, credential, manager, logger)
	if err != nil {
		return fmt.Errorf("failed to create SNMP client: %w", err)
	}

	tableCache, err := cache.New(queryHost, uint16(queryPort), queryV6, client, manager, logger)
	if err != nil {
		return fmt.Errorf("failed to create table cache: %w", err)
	}

	source, err := schema.NewDirSource(manager, logger)
	if err != nil {
		return fmt.Errorf("failed to create MIB source: %w", err)
	}
	if err := tableCache.LoadSchemas(source); err != nil {
		return fmt.Errorf("failed to load MIB definitions: %w", err)
	}

	// Cancel the poll on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rows, err := tableCache.GetTable(ctx, mib, table, !queryNoCache, queryMaxAge)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rows); err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}

	return nil
}

func buildCredential() (creds.Credential, error) {
	if v3User == "" {
		return creds.NewV2c(community), nil
	}

	credential, err := creds.NewV3(v3User, v3Auth, v3AuthPass, v3Priv, v3PrivPass)
	if err != nil {
		return nil, fmt.Errorf("invalid SNMPv3 credential: %w", err)
	}
	return credential, nil
}
