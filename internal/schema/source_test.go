package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// mockConfigProvider implements the config.Provider interface for testing.
type mockConfigProvider struct {
	values map[string]interface{}
}

func newMockConfigProvider(values map[string]any) *mockConfigProvider {
	if values == nil {
		values = map[string]any{}
	}
	return &mockConfigProvider{values: values}
}

func (m *mockConfigProvider) GetString(path string, defaultValue ...string) (string, error) {
	if val, exists := m.values[path]; exists {
		if str, ok := val.(string); ok {
			return str, nil
		}
	}
	if len(defaultValue) > 0 {
		return defaultValue[0], nil
	}
	return "", fmt.Errorf("path not found: %s", path)
}

func (m *mockConfigProvider) GetInt(path string, defaultValue ...int) (int, error) {
	if val, exists := m.values[path]; exists {
		if i, ok := val.(int); ok {
			return i, nil
		}
	}
	if len(defaultValue) > 0 {
		return defaultValue[0], nil
	}
	return 0, fmt.Errorf("path not found: %s", path)
}

func (m *mockConfigProvider) GetFloat(path string, defaultValue ...float64) (float64, error) {
	if val, exists := m.values[path]; exists {
		if f, ok := val.(float64); ok {
			return f, nil
		}
	}
	if len(defaultValue) > 0 {
		return defaultValue[0], nil
	}
	return 0, fmt.Errorf("path not found: %s", path)
}

func (m *mockConfigProvider) GetBool(path string, defaultValue ...bool) (bool, error) {
	if val, exists := m.values[path]; exists {
		if b, ok := val.(bool); ok {
			return b, nil
		}
	}
	if len(defaultValue) > 0 {
		return defaultValue[0], nil
	}
	return false, fmt.Errorf("path not found: %s", path)
}

func (m *mockConfigProvider) GetDuration(path string, defaultValue ...time.Duration) (time.Duration, error) {
	if val, exists := m.values[path]; exists {
		if str, ok := val.(string); ok {
			return time.ParseDuration(str)
		}
		if d, ok := val.(time.Duration); ok {
			return d, nil
		}
	}
	if len(defaultValue) > 0 {
		return defaultValue[0], nil
	}
	return 0, fmt.Errorf("path not found: %s", path)
}

func (m *mockConfigProvider) GetStringSlice(path string, defaultValue ...[]string) ([]string, error) {
	if val, exists := m.values[path]; exists {
		if slice, ok := val.([]string); ok {
			return slice, nil
		}
	}
	if len(defaultValue) > 0 {
		return defaultValue[0], nil
	}
	return nil, fmt.Errorf("path not found: %s", path)
}

func (m *mockConfigProvider) GetMap(path string) (map[string]any, error) {
	if val, exists := m.values[path]; exists {
		if m, ok := val.(map[string]any); ok {
			return m, nil
		}
	}
	return nil, fmt.Errorf("path not found: %s", path)
}

func (m *mockConfigProvider) Exists(path string) bool {
	_, exists := m.values[path]
	return exists
}

func (m *mockConfigProvider) Validate() error {
	return nil
}

const ifMIBJSON = `{
  "imports": {
    "class": "imports",
    "SNMPv2-SMI": ["MODULE-IDENTITY", "OBJECT-TYPE"]
  },
  "ifTable": {
    "class": "objecttype",
    "oid": "1.3.6.1.2.1.2.2.1",
    "nodetype": "row",
    "indices": [{"module": "IF-MIB", "object": "ifIndex"}]
  },
  "ifIndex": {
    "class": "objecttype",
    "oid": "1.3.6.1.2.1.2.2.1.1",
    "syntax": {"class": "type", "type": "InterfaceIndex"}
  },
  "meta": "not an object"
}`

func writeMIBFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write MIB file: %v", err)
	}
}

func TestNewDirSourceDefaults(t *testing.T) {
	source, err := NewDirSource(newMockConfigProvider(nil), testLogger(t))
	if err != nil {
		t.Fatalf("Failed to create dir source: %v", err)
	}

	if len(source.config.Directories) != 1 || source.config.Directories[0] != "./mibs" {
		t.Errorf("Unexpected default directories: %v", source.config.Directories)
	}
	if source.config.MaxFileSize != 10*1024*1024 {
		t.Errorf("Unexpected default max file size: %d", source.config.MaxFileSize)
	}
	if source.config.EnableHotReload {
		t.Error("Hot reload should default to disabled")
	}
}

func TestNewDirSourceNilArguments(t *testing.T) {
	if _, err := NewDirSource(nil, testLogger(t)); err == nil {
		t.Error("Expected error for nil config provider")
	}
	if _, err := NewDirSource(newMockConfigProvider(nil), nil); err == nil {
		t.Error("Expected error for nil logger")
	}
}

func TestDirSourceLoad(t *testing.T) {
	dir := t.TempDir()
	writeMIBFile(t, dir, "IF-MIB.json", ifMIBJSON)
	writeMIBFile(t, dir, "notes.txt", "ignore me")
	writeMIBFile(t, dir, "broken.json.bak", "{}")

	source, err := NewDirSource(newMockConfigProvider(map[string]any{
		"mib.directories": []string{dir},
	}), testLogger(t))
	if err != nil {
		t.Fatalf("Failed to create dir source: %v", err)
	}

	mibs, err := source.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Only *.json files count, and the MIB name is the file stem.
	if len(mibs) != 1 {
		t.Fatalf("Expected 1 MIB, got %d", len(mibs))
	}
	mib, ok := mibs["IF-MIB"]
	if !ok {
		t.Fatal("IF-MIB not loaded")
	}

	if len(mib.Objects) != 2 {
		t.Errorf("Expected 2 objects, got %d", len(mib.Objects))
	}
	table, ok := mib.Objects["ifTable"]
	if !ok {
		t.Fatal("ifTable not decoded")
	}
	if table.NodeType != NodeTypeRow || len(table.Indices) != 1 {
		t.Errorf("ifTable row metadata not decoded: %+v", table)
	}
	if table.Indices[0].Object != "ifIndex" {
		t.Errorf("Unexpected index object: %s", table.Indices[0].Object)
	}

	// The "class" marker inside imports is not an import entry.
	if _, exists := mib.Imports["class"]; exists {
		t.Error("imports class marker was treated as an import")
	}
	if len(mib.Imports["SNMPv2-SMI"]) != 2 {
		t.Errorf("Unexpected SNMPv2-SMI imports: %v", mib.Imports["SNMPv2-SMI"])
	}
}

func TestDirSourceSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	writeMIBFile(t, dir, "IF-MIB.json", ifMIBJSON)

	source, err := NewDirSource(newMockConfigProvider(map[string]any{
		"mib.directories":   []string{dir},
		"mib.max_file_size": 8,
	}), testLogger(t))
	if err != nil {
		t.Fatalf("Failed to create dir source: %v", err)
	}

	mibs, err := source.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(mibs) != 0 {
		t.Errorf("Oversized file was not skipped: %v", mibs)
	}
}

func TestDirSourceMissingDirectory(t *testing.T) {
	source, err := NewDirSource(newMockConfigProvider(map[string]any{
		"mib.directories": []string{"/nonexistent/mib/dir"},
	}), testLogger(t))
	if err != nil {
		t.Fatalf("Failed to create dir source: %v", err)
	}

	if _, err := source.Load(); err == nil {
		t.Error("Expected load from missing directory to fail")
	}
}

func TestDirSourceInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeMIBFile(t, dir, "BAD-MIB.json", "{not json")

	source, err := NewDirSource(newMockConfigProvider(map[string]any{
		"mib.directories": []string{dir},
	}), testLogger(t))
	if err != nil {
		t.Fatalf("Failed to create dir source: %v", err)
	}

	if _, err := source.Load(); err == nil {
		t.Error("Expected invalid JSON to fail the load")
	}
}

func TestDirSourceWatchDisabled(t *testing.T) {
	source, err := NewDirSource(newMockConfigProvider(nil), testLogger(t))
	if err != nil {
		t.Fatalf("Failed to create dir source: %v", err)
	}

	if err := source.Watch(); err != nil {
		t.Errorf("Watch with hot reload disabled should be a no-op, got %v", err)
	}
	if err := source.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
