// Package resolver maps raw SNMP table rows onto MIB-defined field names.
package resolver

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/geekxflood/common/logging"
	"github.com/geekxflood/proteus/internal/codec"
	"github.com/geekxflood/proteus/internal/schema"
)

// QueryTimeField is the reserved row field carrying the query timestamp.
const QueryTimeField = "_query_time"

// indexKey is the OID suffix the transport uses for the row's index value.
const indexKey = "0"

// Resolution errors. Unknown MIB/table abort the query with no cache
// mutation; a row-count mismatch signals a resolver bug or a malformed
// device response.
var (
	ErrUnknownMIB       = errors.New("mib not loaded")
	ErrUnknownTable     = errors.New("table not defined in mib")
	ErrRowCountMismatch = errors.New("resolved row count does not match raw row count")
)

// Row is one resolved table row: field name to resolved value, plus the
// reserved query-time field.
type Row map[string]any

// Stats tracks resolver statistics.
type Stats struct {
	RowsResolved     int64 `json:"rows_resolved"`
	FieldsResolved   int64 `json:"fields_resolved"`
	FieldsUnresolved int64 `json:"fields_unresolved"`
	IndexesDecoded   int64 `json:"indexes_decoded"`
}

// Resolver resolves raw table rows against a schema store.
type Resolver struct {
	store  *schema.Store
	logger logging.Logger
	stats  Stats
	mu     sync.Mutex
}

// New creates a table resolver backed by the given schema store.
func New(store *schema.Store, logger logging.Logger) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("schema store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Resolver{
		store:  store,
		logger: logger.With("component", "resolver"),
	}, nil
}

// Resolve maps each raw row's OID suffixes to schema-defined field names,
// applying the field formatter per column and the index decoder for the
// reserved index suffix. Suffixes with no schema object are kept raw with a
// warning. Resolution is 1:1 on rows; a count mismatch fails the call.
func (r *Resolver) Resolve(mib, table string, rawRows []codec.RawRow, queryTime time.Time) ([]Row, error) {
	m, ok := r.store.MIB(mib)
	if !ok {
		return nil, fmt.Errorf("%w: %s (loaded MIBs: %v)", ErrUnknownMIB, mib, r.store.MIBNames())
	}
	tableObj, ok := m.Objects[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s::%s", ErrUnknownTable, mib, table)
	}

	rows := make([]Row, 0, len(rawRows))
	for _, raw := range rawRows {
		rows = append(rows, r.resolveRow(m, tableObj, mib, table, raw, queryTime))
	}

	if err := checkRowCount(len(rows), len(rawRows)); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.stats.RowsResolved += int64(len(rows))
	r.mu.Unlock()

	return rows, nil
}

func (r *Resolver) resolveRow(m *schema.MIB, tableObj *schema.Object, mib, table string, raw codec.RawRow, queryTime time.Time) Row {
	row := Row{QueryTimeField: queryTime}

	fieldsResolved := int64(0)
	fieldsUnresolved := int64(0)
	indexesDecoded := int64(0)

	for suffix, value := range raw {
		name, obj := m.ObjectByOID(tableObj.OID + "." + suffix)
		if obj != nil {
			if obj.Syntax != nil {
				row[name] = codec.FormatField(value, obj.Syntax, r.logger)
			} else {
				row[name] = value.Native()
			}
			fieldsResolved++
			continue
		}

		if suffix == indexKey {
			if tableObj.NodeType == schema.NodeTypeRow && len(tableObj.Indices) > 0 {
				for field, decoded := range codec.DecodeIndex(value.IndexString(), tableObj.Indices, r.store, r.logger) {
					row[field] = decoded
				}
				indexesDecoded++
			}
			continue
		}

		r.logger.Warn("returned OID not found in MIB",
			"mib", mib,
			"table", table,
			"oid", tableObj.OID+"."+suffix)
		row[suffix] = value.Native()
		fieldsUnresolved++
	}

	r.mu.Lock()
	r.stats.FieldsResolved += fieldsResolved
	r.stats.FieldsUnresolved += fieldsUnresolved
	r.stats.IndexesDecoded += indexesDecoded
	r.mu.Unlock()

	return row
}

// checkRowCount enforces the 1:1 row invariant.
func checkRowCount(resolved, raw int) error {
	if resolved != raw {
		return fmt.Errorf("%w: %d / %d", ErrRowCountMismatch, resolved, raw)
	}
	return nil
}

// GetStats returns a copy of the resolver statistics.
func (r *Resolver) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
