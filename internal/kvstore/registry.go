package kvstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry is the global root→database→store cache (spec §4.6
// "globally keyed by store root PathBuf"), grounded on
// internal/reactive/registry.go's RWMutex-guarded map[string]*T shape,
// adapted to a two-level key and a Drop/Rename pair.
type Registry struct {
	mu     sync.RWMutex
	root   string
	log    *zap.Logger
	stops  map[string]chan struct{}
	stores map[string]*Store // key: "<database>/<name>"
}

func NewRegistry(root string, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{root: root, log: log, stops: map[string]chan struct{}{}, stores: map[string]*Store{}}
}

func (r *Registry) storeKey(database, name string) string { return database + "/" + name }

func (r *Registry) storeDir(database, name string) string {
	return filepath.Join(r.root, database, name)
}

// Open returns the cached Store for (database, name), creating its
// directory/settings and loading any existing snapshot on first
// access (spec §4.6 Reload).
func (r *Registry) Open(database, name string) (*Store, error) {
	key := r.storeKey(database, name)

	r.mu.RLock()
	if s, ok := r.stores[key]; ok {
		r.mu.RUnlock()
		return s, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[key]; ok {
		return s, nil
	}

	dir := r.storeDir(database, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("kvstore: create store dir: %w", err)
	}
	settings, err := loadSettings(dir)
	if err != nil {
		settings = Settings{Name: name}
		settings.Persistence.Format = "bincode"
		if err := saveSettings(dir, settings); err != nil {
			return nil, err
		}
	}

	s := newStore(dir, settings)
	if err := loadSnapshot(s); err != nil {
		return nil, err
	}

	if settings.Persistence.Enabled {
		interval := time.Duration(settings.Persistence.IntervalMs) * time.Millisecond
		if interval <= 0 {
			interval = 30 * time.Second
		}
		stop := make(chan struct{})
		startSnapshotLoop(s, interval, stop)
		r.stops[key] = stop
	}

	r.stores[key] = s
	r.log.Info("kvstore opened", zap.String("store", key), zap.Bool("persistence", settings.Persistence.Enabled))
	return s, nil
}

// Drop removes a store's directory and evicts it from the cache (spec
// §4.6 drop_store).
func (r *Registry) Drop(database, name string) error {
	key := r.storeKey(database, name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if stop, ok := r.stops[key]; ok {
		close(stop)
		delete(r.stops, key)
	}
	delete(r.stores, key)

	if err := os.RemoveAll(r.storeDir(database, name)); err != nil {
		return fmt.Errorf("kvstore: drop store %s: %w", key, err)
	}
	r.log.Info("kvstore dropped", zap.String("store", key))
	return nil
}

// Rename renames a store's directory and rewrites its settings under
// the new name (spec §4.6 rename_store).
func (r *Registry) Rename(database, from, to string) error {
	fromKey := r.storeKey(database, from)
	toKey := r.storeKey(database, to)

	r.mu.Lock()
	defer r.mu.Unlock()

	fromDir := r.storeDir(database, from)
	toDir := r.storeDir(database, to)
	if err := os.Rename(fromDir, toDir); err != nil {
		return fmt.Errorf("kvstore: rename store dir: %w", err)
	}

	if stop, ok := r.stops[fromKey]; ok {
		delete(r.stops, fromKey)
		r.stops[toKey] = stop
	}

	if s, ok := r.stores[fromKey]; ok {
		delete(r.stores, fromKey)
		s.Dir = toDir
		s.Settings.Name = to
		if err := saveSettings(toDir, s.Settings); err != nil {
			return err
		}
		r.stores[toKey] = s
	}
	return nil
}
