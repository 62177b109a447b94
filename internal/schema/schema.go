// Package schema provides the MIB schema store and cross-MIB type resolution.
//
// The store holds parsed MIB definitions keyed by MIB name. Loading merges
// the output of one or more schema sources and then runs a single resolution
// pass that rewrites syntax descriptors referencing types imported from other
// MIBs, so query-time lookups never have to chase cross-MIB references.
package schema

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geekxflood/common/logging"
)

// Object class and node type values as they appear in pysmi JSON MIB dumps.
const (
	ClassObjectType = "objecttype"
	ClassType       = "type"
	NodeTypeRow     = "row"
)

// reservedImportPrefix marks generic SNMP framework imports that are never
// used as cross-MIB type resolution sources.
const reservedImportPrefix = "SNMP"

// Syntax describes the type of an object. Class is "type" when the
// descriptor references another type by name; after the resolution pass a
// previously referencing descriptor carries the imported definition instead.
type Syntax struct {
	Class       string         `json:"class,omitempty"`
	Type        string         `json:"type,omitempty"`
	Constraints *Constraints   `json:"constraints,omitempty"`
	Bits        map[string]int `json:"bits,omitempty"`
}

// Constraints holds the subset of SMI constraints the resolution engine
// consumes. Enumeration maps a label to its integer code.
type Constraints struct {
	Enumeration map[string]int64 `json:"enumeration,omitempty"`
}

// IndexRef names one component of a table's composite index. The referenced
// object may live in a different MIB than the table itself.
type IndexRef struct {
	Module string `json:"module"`
	Object string `json:"object"`
}

// Object is a single MIB object definition.
type Object struct {
	Class    string         `json:"class,omitempty"`
	OID      string         `json:"oid,omitempty"`
	NodeType string         `json:"nodetype,omitempty"`
	Syntax   *Syntax        `json:"syntax,omitempty"`
	Type     *Syntax        `json:"type,omitempty"`
	Indices  []IndexRef     `json:"indices,omitempty"`
	Bits     map[string]int `json:"bits,omitempty"`
}

// MIB is one parsed MIB definition: its objects plus the import declarations
// used by the resolution pass. Imports maps an imported MIB name to the list
// of symbols declared available from it.
type MIB struct {
	Objects map[string]*Object
	Imports map[string][]string
}

// ObjectByOID returns the object whose absolute OID matches, along with its
// name. Lookup is a linear scan; MIBs are small and this is only called on
// the resolution path.
func (m *MIB) ObjectByOID(oid string) (string, *Object) {
	for name, obj := range m.Objects {
		if obj.OID == oid {
			return name, obj
		}
	}
	return "", nil
}

// StoreStats tracks schema store statistics.
type StoreStats struct {
	MIBsLoaded         int       `json:"mibs_loaded"`
	ObjectsLoaded      int       `json:"objects_loaded"`
	ReferencesResolved int       `json:"references_resolved"`
	LastLoadTime       time.Time `json:"last_load_time"`
}

// Store holds parsed MIB definitions and answers lookups after the
// cross-MIB resolution pass has run.
type Store struct {
	mibs   map[string]*MIB
	stats  StoreStats
	logger logging.Logger
	mu     sync.RWMutex
}

// NewStore creates an empty schema store.
func NewStore(logger logging.Logger) (*Store, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Store{
		mibs:   make(map[string]*MIB),
		logger: logger.With("component", "schema"),
	}, nil
}

// Load merges the MIB definitions supplied by the given sources, runs the
// cross-MIB resolution pass, and replaces the store contents wholesale. A
// failing source aborts the load and leaves the previous contents in place.
func (s *Store) Load(sources ...Source) error {
	merged := make(map[string]*MIB)
	objects := 0

	for _, source := range sources {
		mibs, err := source.Load()
		if err != nil {
			return fmt.Errorf("schema source %q: %w", source.Name(), err)
		}
		for name, mib := range mibs {
			merged[name] = mib
			objects += len(mib.Objects)
		}
	}

	resolved := resolveImportedTypes(merged, s.logger)

	s.mu.Lock()
	s.mibs = merged
	s.stats = StoreStats{
		MIBsLoaded:         len(merged),
		ObjectsLoaded:      objects,
		ReferencesResolved: resolved,
		LastLoadTime:       time.Now(),
	}
	s.mu.Unlock()

	s.logger.Info("loaded MIB definitions",
		"mibs", len(merged),
		"objects", objects,
		"resolved_references", resolved)

	return nil
}

// resolveImportedTypes rewrites syntax descriptors that reference a type
// imported from another MIB, copying the imported definition's type
// descriptor in place of the reference. The pass is a single bounded sweep:
// each object is rewritten at most once and a rewrite installs a concrete
// descriptor, so re-running the pass makes no further changes. Unresolvable
// references are left untouched.
func resolveImportedTypes(mibs map[string]*MIB, logger logging.Logger) int {
	resolved := 0

	for mibName, mib := range mibs {
		for objectName, obj := range mib.Objects {
			if obj.Class != ClassObjectType || obj.Syntax == nil || obj.Syntax.Class != ClassType {
				continue
			}

			for importedMIB, symbols := range mib.Imports {
				// Generic SNMP framework imports are not resolution sources.
				if importedMIB == "class" || strings.HasPrefix(importedMIB, reservedImportPrefix) {
					continue
				}
				if !slices.Contains(symbols, obj.Syntax.Type) {
					continue
				}

				source, ok := mibs[importedMIB]
				if !ok {
					continue
				}
				definition, ok := source.Objects[obj.Syntax.Type]
				if !ok || definition.Type == nil {
					continue
				}

				logger.Debug("resolved imported type",
					"mib", mibName,
					"object", objectName,
					"type", obj.Syntax.Type,
					"from", importedMIB)

				obj.Syntax = definition.Type
				resolved++
				break
			}
		}
	}

	return resolved
}

// Lookup returns the object definition for (mib, object).
func (s *Store) Lookup(mib, object string) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mibs[mib]
	if !ok {
		return nil, false
	}
	obj, ok := m.Objects[object]
	return obj, ok
}

// LookupSyntax returns the syntax descriptor for (mib, object), if the
// object exists and carries one.
func (s *Store) LookupSyntax(mib, object string) (*Syntax, bool) {
	obj, ok := s.Lookup(mib, object)
	if !ok || obj.Syntax == nil {
		return nil, false
	}
	return obj.Syntax, true
}

// MIB returns the parsed definition for the named MIB. The returned value is
// shared and must be treated as read-only.
func (s *Store) MIB(name string) (*MIB, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mibs[name]
	return m, ok
}

// Has reports whether the named MIB is loaded.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.mibs[name]
	return ok
}

// MIBNames returns the names of all loaded MIBs in sorted order.
func (s *Store) MIBNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.mibs))
	for name := range s.mibs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ObjectCount returns the number of objects defined in the named MIB.
func (s *Store) ObjectCount(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.mibs[name]; ok {
		return len(m.Objects)
	}
	return 0
}

// GetStats returns a copy of the store statistics.
func (s *Store) GetStats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.stats
}
