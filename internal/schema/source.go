package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/geekxflood/common/config"
	"github.com/geekxflood/common/logging"
)

// Source supplies parsed MIB definitions keyed by MIB name.
type Source interface {
	// Name identifies the source in load error messages and logs.
	Name() string

	// Load returns the parsed MIB definitions. Implementations must return
	// a fresh mapping on every call; the store takes ownership of it.
	Load() (map[string]*MIB, error)
}

// StaticSource serves an in-memory set of MIB definitions. It is the
// natural source for callers that obtain schemas from somewhere other than
// the filesystem, and for tests.
type StaticSource struct {
	name string
	mibs map[string]*MIB
}

// NewStaticSource creates a source serving the given definitions.
func NewStaticSource(name string, mibs map[string]*MIB) *StaticSource {
	return &StaticSource{name: name, mibs: mibs}
}

// Name implements Source.
func (s *StaticSource) Name() string { return s.name }

// Load implements Source.
func (s *StaticSource) Load() (map[string]*MIB, error) {
	out := make(map[string]*MIB, len(s.mibs))
	for name, mib := range s.mibs {
		out[name] = mib
	}
	return out, nil
}

// DirSourceConfig holds configuration for the JSON MIB directory source.
type DirSourceConfig struct {
	Directories     []string `json:"directories"`
	MaxFileSize     int64    `json:"max_file_size"`
	EnableHotReload bool     `json:"enable_hot_reload"`
}

// DefaultDirSourceConfig returns a default directory source configuration.
func DefaultDirSourceConfig() *DirSourceConfig {
	return &DirSourceConfig{
		Directories:     []string{"./mibs"},
		MaxFileSize:     10 * 1024 * 1024, // 10MB
		EnableHotReload: false,
	}
}

// ReloadHandler is called after the watched MIB directories change.
type ReloadHandler func()

// DirSource loads pysmi-style JSON MIB dumps from one or more directories.
// Each *.json file holds one MIB; the file stem is the MIB name.
type DirSource struct {
	config   *DirSourceConfig
	logger   logging.Logger
	watcher  *fsnotify.Watcher
	handlers []ReloadHandler
	mu       sync.Mutex
}

// NewDirSource creates a directory source from the configuration provider.
func NewDirSource(cfg config.Provider, logger logging.Logger) (*DirSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration provider cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	sourceConfig := DefaultDirSourceConfig()

	if dirs, err := cfg.GetStringSlice("mib.directories"); err == nil && len(dirs) > 0 {
		sourceConfig.Directories = dirs
	}
	if size, err := cfg.GetInt("mib.max_file_size", int(sourceConfig.MaxFileSize)); err == nil {
		sourceConfig.MaxFileSize = int64(size)
	}
	if reload, err := cfg.GetBool("mib.enable_hot_reload", sourceConfig.EnableHotReload); err == nil {
		sourceConfig.EnableHotReload = reload
	}

	return &DirSource{
		config: sourceConfig,
		logger: logger.With("component", "schema-source"),
	}, nil
}

// Name implements Source.
func (d *DirSource) Name() string {
	return strings.Join(d.config.Directories, ",")
}

// Load implements Source. Files that are not *.json, exceed the size limit,
// or fail to decode are skipped with a log line; a missing directory fails
// the whole load.
func (d *DirSource) Load() (map[string]*MIB, error) {
	mibs := make(map[string]*MIB)

	for _, dir := range d.config.Directories {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read MIB directory %s: %w", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			info, err := entry.Info()
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", path, err)
			}
			if info.Size() > d.config.MaxFileSize {
				d.logger.Warn("skipping oversized MIB file", "path", path, "size", info.Size())
				continue
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}

			mib, err := decodeMIB(content)
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", path, err)
			}

			name, _, _ := strings.Cut(entry.Name(), ".")
			mibs[name] = mib
			d.logger.Debug("loaded MIB file", "path", path, "mib", name, "objects", len(mib.Objects))
		}
	}

	return mibs, nil
}

// decodeMIB decodes one pysmi JSON MIB dump: a flat object whose keys are
// MIB object names, plus a reserved "imports" key mapping imported MIB
// names to symbol lists.
func decodeMIB(content []byte) (*MIB, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, err
	}

	mib := &MIB{
		Objects: make(map[string]*Object, len(raw)),
		Imports: make(map[string][]string),
	}

	for key, value := range raw {
		if key == "imports" {
			var imports map[string]json.RawMessage
			if err := json.Unmarshal(value, &imports); err != nil {
				return nil, fmt.Errorf("invalid imports section: %w", err)
			}
			for module, symbols := range imports {
				var names []string
				// Non-list entries (the "class" marker) are not imports.
				if err := json.Unmarshal(symbols, &names); err != nil {
					continue
				}
				mib.Imports[module] = names
			}
			continue
		}

		var obj Object
		if err := json.Unmarshal(value, &obj); err != nil {
			// The dumps carry non-object metadata entries; ignore them.
			continue
		}
		mib.Objects[key] = &obj
	}

	return mib, nil
}

// RegisterReloadHandler registers a handler invoked after a watched
// directory changes.
func (d *DirSource) RegisterReloadHandler(handler ReloadHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, handler)
}

// Watch starts watching the configured directories for changes to JSON MIB
// files. It is a no-op unless hot reload is enabled.
func (d *DirSource) Watch() error {
	if !d.config.EnableHotReload {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	d.watcher = watcher

	for _, dir := range d.config.Directories {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	go d.watchLoop()
	return nil
}

// Close stops the directory watcher if one is running.
func (d *DirSource) Close() error {
	if d.watcher != nil {
		return d.watcher.Close()
	}
	return nil
}

func (d *DirSource) watchLoop() {
	for {
		select {
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}
			// Debounce rapid successive writes to the same file.
			time.Sleep(100 * time.Millisecond)
			d.logger.Info("MIB file changed", "path", event.Name, "op", event.Op.String())
			d.notifyHandlers()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Error("file watcher error", "error", err.Error())
		}
	}
}

func (d *DirSource) notifyHandlers() {
	d.mu.Lock()
	handlers := make([]ReloadHandler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.Unlock()

	for _, handler := range handlers {
		handler()
	}
}
