// Package cache implements the per-device SNMP table cache and query
// orchestration.
//
// Each TableCache instance serves one device. A single coarse mutex guards
// the cache map and is held for the full read-check-act sequence including
// the live poll, which serializes all table queries against the device.
// Parallelism across devices comes from the Registry, which keeps one cache
// instance (and therefore one lock) per device.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/geekxflood/common/config"
	"github.com/geekxflood/common/logging"

	"github.com/geekxflood/proteus/internal/metrics"
	"github.com/geekxflood/proteus/internal/resolver"
	"github.com/geekxflood/proteus/internal/schema"
	"github.com/geekxflood/proteus/internal/store"
	"github.com/geekxflood/proteus/internal/transport"
)

// CacheConfig holds configuration for a table cache instance.
type CacheConfig struct {
	Enabled bool `json:"enabled"`

	// MaxAge is the global freshness ceiling. An entry is fresh while its
	// age stays below min(MaxAge, the entry's own max age).
	MaxAge time.Duration `json:"max_age"`

	// DefaultQueryMaxAge is the per-entry max age applied when the caller
	// passes none.
	DefaultQueryMaxAge time.Duration `json:"default_query_max_age"`
}

// DefaultCacheConfig returns a default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Enabled:            true,
		MaxAge:             10 * time.Minute,
		DefaultQueryMaxAge: 10 * time.Minute,
	}
}

// entry is one cached table. Entries are replaced wholesale on refresh; an
// entry with data always has a valid query time.
type entry struct {
	maxAge    time.Duration
	queryTime time.Time
	data      []resolver.Row
}

// TableCache caches resolved SNMP table data for a single device, keyed by
// (MIB, table) with independent per-entry max age.
type TableCache struct {
	host string
	port uint16
	v6   bool

	config    *CacheConfig
	schemas   *schema.Store
	resolver  *resolver.Resolver
	fetcher   transport.TableFetcher
	snapshots *store.SnapshotStore
	metrics   *metrics.Metrics
	logger    logging.Logger

	entries map[string]map[string]*entry
	mu      sync.Mutex
}

// New creates a table cache for one device. The fetcher is the transport
// collaborator used for live polls.
func New(host string, port uint16, v6 bool, fetcher transport.TableFetcher, cfg config.Provider, logger logging.Logger) (*TableCache, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("table fetcher cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration provider cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	cacheConfig := DefaultCacheConfig()

	if enabled, err := cfg.GetBool("cache.enabled", cacheConfig.Enabled); err == nil {
		cacheConfig.Enabled = enabled
	}
	if maxAge, err := cfg.GetDuration("cache.max_age", cacheConfig.MaxAge); err == nil {
		cacheConfig.MaxAge = maxAge
	}
	if queryMaxAge, err := cfg.GetDuration("cache.default_query_max_age", cacheConfig.DefaultQueryMaxAge); err == nil {
		cacheConfig.DefaultQueryMaxAge = queryMaxAge
	}

	deviceLogger := logger.With("device", deviceKey(host, port, v6))

	schemas, err := schema.NewStore(deviceLogger)
	if err != nil {
		return nil, err
	}

	tableResolver, err := resolver.New(schemas, deviceLogger)
	if err != nil {
		return nil, err
	}

	return &TableCache{
		host:     host,
		port:     port,
		v6:       v6,
		config:   cacheConfig,
		schemas:  schemas,
		resolver: tableResolver,
		fetcher:  fetcher,
		logger:   deviceLogger,
		entries:  make(map[string]map[string]*entry),
	}, nil
}

// SetSnapshotStore enables snapshot persistence of successful refreshes.
func (c *TableCache) SetSnapshotStore(s *store.SnapshotStore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = s
}

// SetMetrics enables Prometheus instrumentation.
func (c *TableCache) SetMetrics(m *metrics.Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// Schemas returns the cache's schema store.
func (c *TableCache) Schemas() *schema.Store {
	return c.schemas
}

// Device returns the device identity string.
func (c *TableCache) Device() string {
	return deviceKey(c.host, c.port, c.v6)
}

// LoadSchemas loads MIB definitions from the given sources, replacing the
// schema store wholesale. Held under the cache lock so in-flight queries
// never observe a partially loaded store.
func (c *TableCache) LoadSchemas(sources ...schema.Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schemas.Load(sources...)
}

// GetTable returns the resolved rows of table in mib. A fresh cache entry
// is served when allowCached is true and caching is enabled; otherwise a
// live poll runs and, on success, replaces the entry wholesale. maxAge is
// the entry-specific TTL; pass 0 for the configured default. A failed poll
// returns the error and leaves any existing entry untouched.
func (c *TableCache) GetTable(ctx context.Context, mib, table string, allowCached bool, maxAge time.Duration) ([]resolver.Row, error) {
	if maxAge <= 0 {
		maxAge = c.config.DefaultQueryMaxAge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.Enabled && allowCached {
		if e := c.lookupLocked(mib, table); e != nil && e.data != nil {
			ttl := min(c.config.MaxAge, e.maxAge)
			if age := time.Since(e.queryTime); age < ttl {
				c.logger.Debug("serving table from cache",
					"mib", mib,
					"table", table,
					"age", age,
					"ttl", ttl)
				if c.metrics != nil {
					c.metrics.CacheHits.WithLabelValues(mib, table).Inc()
				}
				return e.data, nil
			}
		}
	}

	if c.metrics != nil {
		c.metrics.CacheMisses.WithLabelValues(mib, table).Inc()
	}

	rows, queryTime, err := c.pollLocked(ctx, mib, table)
	if err != nil {
		return nil, err
	}

	if c.config.Enabled {
		tables, ok := c.entries[mib]
		if !ok {
			tables = make(map[string]*entry)
			c.entries[mib] = tables
		}
		tables[table] = &entry{
			maxAge:    maxAge,
			queryTime: queryTime,
			data:      rows,
		}
	}

	c.saveSnapshot(ctx, mib, table, queryTime, rows)

	return rows, nil
}

// pollLocked performs the live query: schema check, transport fetch, and
// resolution. Called with the cache lock held.
func (c *TableCache) pollLocked(ctx context.Context, mib, table string) ([]resolver.Row, time.Time, error) {
	m, ok := c.schemas.MIB(mib)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("%w: %s (loaded MIBs: %v)", resolver.ErrUnknownMIB, mib, c.schemas.MIBNames())
	}
	tableObj, ok := m.Objects[table]
	if !ok {
		return nil, time.Time{}, fmt.Errorf("%w: %s::%s", resolver.ErrUnknownTable, mib, table)
	}

	c.logger.Debug("polling table from device", "mib", mib, "table", table, "oid", tableObj.OID)
	if c.metrics != nil {
		c.metrics.LivePolls.WithLabelValues(mib, table).Inc()
	}

	start := time.Now()
	rawRows, err := c.fetcher.FetchTable(ctx, tableObj.OID)
	if err != nil {
		if c.metrics != nil {
			c.metrics.PollErrors.WithLabelValues(mib, table).Inc()
		}
		return nil, time.Time{}, fmt.Errorf("failed to fetch table %s::%s: %w", mib, table, err)
	}
	queryTime := time.Now()

	rows, err := c.resolver.Resolve(mib, table, rawRows, queryTime)
	if err != nil {
		return nil, time.Time{}, err
	}

	if c.metrics != nil {
		c.metrics.PollDuration.WithLabelValues(mib, table).Observe(time.Since(start).Seconds())
		c.metrics.RowsResolved.WithLabelValues(mib, table).Add(float64(len(rows)))
	}

	c.logger.Debug("table poll complete", "mib", mib, "table", table, "rows", len(rows))
	return rows, queryTime, nil
}

// saveSnapshot persists a successful refresh when a snapshot store is
// configured. Persistence failures are logged, never propagated.
func (c *TableCache) saveSnapshot(ctx context.Context, mib, table string, queryTime time.Time, rows []resolver.Row) {
	if c.snapshots == nil {
		return
	}

	snap := &store.Snapshot{
		Device:    c.Device(),
		MIB:       mib,
		Table:     table,
		QueryTime: queryTime,
		Rows:      rows,
	}
	if err := c.snapshots.Save(ctx, snap); err != nil {
		c.logger.Warn("failed to persist table snapshot",
			"mib", mib,
			"table", table,
			"error", err.Error())
	}
}

// lookupLocked returns the entry for (mib, table), or nil. Called with the
// cache lock held.
func (c *TableCache) lookupLocked(mib, table string) *entry {
	if tables, ok := c.entries[mib]; ok {
		return tables[table]
	}
	return nil
}

// RefreshTime returns the time of the last successful query for the key.
func (c *TableCache) RefreshTime(mib, table string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.lookupLocked(mib, table); e != nil {
		return e.queryTime, true
	}
	return time.Time{}, false
}

// CacheAge returns the duration since the last successful query for the
// key, or false if the key was never queried.
func (c *TableCache) CacheAge(mib, table string) (time.Duration, bool) {
	refreshTime, ok := c.RefreshTime(mib, table)
	if !ok {
		return 0, false
	}
	return time.Since(refreshTime), true
}

// Flush drops every cached entry. Schema definitions are unaffected.
func (c *TableCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]map[string]*entry)
}

func deviceKey(host string, port uint16, v6 bool) string {
	key := fmt.Sprintf("%s:%d", host, port)
	if v6 {
		key += " v6"
	}
	return key
}
