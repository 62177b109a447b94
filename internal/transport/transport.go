// Package transport implements the device-facing SNMP table fetcher on top
// of gosnmp. It is the only package that touches the SNMP wire protocol;
// everything above it works on raw value variants and OID suffixes.
package transport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/geekxflood/common/config"
	"github.com/geekxflood/common/logging"
	"github.com/gosnmp/gosnmp"

	"github.com/geekxflood/proteus/internal/codec"
	"github.com/geekxflood/proteus/internal/creds"
)

// TableFetcher fetches all rows of a conceptual table from a device. The
// cache layer depends on this interface, not on gosnmp.
type TableFetcher interface {
	// FetchTable returns every row of the table rooted at oid, each row a
	// mapping from OID suffix to raw value with the row index under the
	// reserved suffix "0".
	FetchTable(ctx context.Context, oid string) ([]codec.RawRow, error)
}

// ClientConfig holds configuration for the SNMP client.
type ClientConfig struct {
	Timeout time.Duration `json:"timeout"`
	Retries int           `json:"retries"`
	MaxOids int           `json:"max_oids"`
}

// DefaultClientConfig returns a default client configuration.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout: 10 * time.Second,
		Retries: 3,
		MaxOids: 60,
	}
}

// ClientStats tracks SNMP client statistics.
type ClientStats struct {
	TablesFetched int64         `json:"tables_fetched"`
	PDUsReceived  int64         `json:"pdus_received"`
	FetchErrors   int64         `json:"fetch_errors"`
	TotalLatency  time.Duration `json:"total_latency"`
	LastFetchTime time.Time     `json:"last_fetch_time"`
}

// Client polls SNMP tables from a single device over v2c or v3.
type Client struct {
	host   string
	port   uint16
	v6     bool
	cred   creds.Credential
	config *ClientConfig
	logger logging.Logger
	stats  ClientStats
	mu     sync.Mutex
}

// NewClient creates an SNMP client for the given device and credential.
func NewClient(host string, port uint16, v6 bool, cred creds.Credential, cfg config.Provider, logger logging.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration provider cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cred == nil {
		return nil, fmt.Errorf("credential cannot be nil")
	}

	clientConfig := DefaultClientConfig()

	if timeout, err := cfg.GetDuration("snmp.timeout", clientConfig.Timeout); err == nil {
		clientConfig.Timeout = timeout
	}
	if retries, err := cfg.GetInt("snmp.retries", clientConfig.Retries); err == nil {
		clientConfig.Retries = retries
	}
	if maxOids, err := cfg.GetInt("snmp.max_oids", clientConfig.MaxOids); err == nil {
		clientConfig.MaxOids = maxOids
	}

	return &Client{
		host:   host,
		port:   port,
		v6:     v6,
		cred:   cred,
		config: clientConfig,
		logger: logger.With("component", "transport", "device", fmt.Sprintf("%s:%d", host, port)),
	}, nil
}

// FetchTable implements TableFetcher. It bulk-walks the table OID and
// groups the returned varbinds into rows keyed by OID suffix.
func (c *Client) FetchTable(ctx context.Context, oid string) ([]codec.RawRow, error) {
	conn, err := c.connection(ctx)
	if err != nil {
		c.recordError()
		return nil, err
	}

	if err := conn.Connect(); err != nil {
		c.recordError()
		return nil, fmt.Errorf("failed to connect to %s:%d: %w", c.host, c.port, err)
	}
	defer conn.Conn.Close()

	start := time.Now()
	pdus, err := conn.BulkWalkAll(oid)
	if err != nil {
		c.recordError()
		return nil, fmt.Errorf("table walk of %s failed: %w", oid, err)
	}

	rows := groupRows(oid, pdus)

	c.mu.Lock()
	c.stats.TablesFetched++
	c.stats.PDUsReceived += int64(len(pdus))
	c.stats.TotalLatency += time.Since(start)
	c.stats.LastFetchTime = time.Now()
	c.mu.Unlock()

	c.logger.Debug("table walk complete", "oid", oid, "pdus", len(pdus), "rows", len(rows))
	return rows, nil
}

// connection builds a gosnmp connection for one fetch. Connections are not
// pooled; the cache layer serializes fetches per device anyway.
func (c *Client) connection(ctx context.Context) (*gosnmp.GoSNMP, error) {
	transport := "udp"
	if c.v6 {
		transport = "udp6"
	}

	conn := &gosnmp.GoSNMP{
		Target:    c.host,
		Port:      c.port,
		Transport: transport,
		Timeout:   c.config.Timeout,
		Retries:   c.config.Retries,
		MaxOids:   c.config.MaxOids,
		Context:   ctx,
	}

	if err := applyCredential(conn, c.cred); err != nil {
		return nil, err
	}
	return conn, nil
}

// applyCredential configures the connection's version and security
// parameters from the credential.
func applyCredential(conn *gosnmp.GoSNMP, cred creds.Credential) error {
	switch cred := cred.(type) {
	case creds.V2c:
		conn.Version = gosnmp.Version2c
		conn.Community = cred.Community

	case creds.V3:
		conn.Version = gosnmp.Version3
		conn.SecurityModel = gosnmp.UserSecurityModel

		usm := &gosnmp.UsmSecurityParameters{UserName: cred.User}

		switch cred.Auth {
		case creds.AuthMD5:
			usm.AuthenticationProtocol = gosnmp.MD5
		case creds.AuthSHA1:
			usm.AuthenticationProtocol = gosnmp.SHA
		default:
			usm.AuthenticationProtocol = gosnmp.NoAuth
		}
		usm.AuthenticationPassphrase = cred.AuthPassphrase

		switch cred.Priv {
		case creds.PrivDES:
			usm.PrivacyProtocol = gosnmp.DES
		case creds.PrivAES128:
			usm.PrivacyProtocol = gosnmp.AES
		default:
			usm.PrivacyProtocol = gosnmp.NoPriv
		}
		usm.PrivacyPassphrase = cred.PrivPassphrase

		switch {
		case cred.Auth != creds.AuthNone && cred.Priv != creds.PrivNone:
			conn.MsgFlags = gosnmp.AuthPriv
		case cred.Auth != creds.AuthNone:
			conn.MsgFlags = gosnmp.AuthNoPriv
		default:
			conn.MsgFlags = gosnmp.NoAuthNoPriv
		}

		conn.SecurityParameters = usm

	default:
		return fmt.Errorf("unsupported credential type %T", cred)
	}

	return nil
}

// groupRows turns walked varbinds into rows. A varbind under the table OID
// has the relative form <column>.<index...>; varbinds sharing an index form
// one row, keyed by column suffix, with the index string stored under the
// reserved suffix "0". Row order follows first appearance in the walk.
func groupRows(tableOID string, pdus []gosnmp.SnmpPDU) []codec.RawRow {
	prefix := "." + strings.Trim(tableOID, ".") + "."

	var order []string
	rows := make(map[string]codec.RawRow)

	for _, pdu := range pdus {
		name := pdu.Name
		if !strings.HasPrefix(name, ".") {
			name = "." + name
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		column, index, ok := strings.Cut(strings.TrimPrefix(name, prefix), ".")
		if !ok || index == "" {
			continue
		}

		row, exists := rows[index]
		if !exists {
			row = codec.RawRow{"0": codec.Bytes([]byte(index))}
			rows[index] = row
			order = append(order, index)
		}
		row[column] = rawValue(pdu)
	}

	out := make([]codec.RawRow, 0, len(order))
	for _, index := range order {
		out = append(out, rows[index])
	}
	return out
}

// centisecond is the TimeTicks unit.
const centisecond = 10 * time.Millisecond

// rawValue maps one gosnmp varbind value into the closed raw value variant.
func rawValue(pdu gosnmp.SnmpPDU) codec.RawValue {
	switch pdu.Type {
	case gosnmp.OctetString:
		if b, ok := pdu.Value.([]byte); ok {
			return codec.Bytes(b)
		}
		return codec.Bytes([]byte(fmt.Sprintf("%v", pdu.Value)))

	case gosnmp.TimeTicks:
		return codec.Ticks(time.Duration(gosnmp.ToBigInt(pdu.Value).Int64()) * centisecond)

	case gosnmp.IPAddress:
		if s, ok := pdu.Value.(string); ok {
			if ip := net.ParseIP(s); ip != nil {
				return codec.Address(ip)
			}
		}
		return codec.Bytes([]byte(fmt.Sprintf("%v", pdu.Value)))

	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.Counter64, gosnmp.Uinteger32:
		return codec.Integer(gosnmp.ToBigInt(pdu.Value).Int64())

	case gosnmp.ObjectIdentifier:
		if s, ok := pdu.Value.(string); ok {
			return codec.Bytes([]byte(s))
		}
		return codec.Bytes(nil)

	default:
		if b, ok := pdu.Value.([]byte); ok {
			return codec.Bytes(b)
		}
		return codec.Bytes([]byte(fmt.Sprintf("%v", pdu.Value)))
	}
}

// GetStats returns a copy of the client statistics.
func (c *Client) GetStats() ClientStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Client) recordError() {
	c.mu.Lock()
	c.stats.FetchErrors++
	c.mu.Unlock()
}
