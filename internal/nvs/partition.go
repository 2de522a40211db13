package nvs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Namespace names used by the clock.
const (
	WifiNamespace  = "wifi_ns"
	TZNamespace    = "tz_ns"
	PrefsNamespace = "prefs_ns"
)

const namespaceExt = ".yaml"

// Partition is a directory of namespace files.
type Partition struct {
	dir string

	mu         sync.Mutex
	namespaces map[string]*Namespace
}

// OpenPartition opens (creating if needed) the partition rooted at dir.
func OpenPartition(dir string) (*Partition, error) {
	if dir == "" {
		return nil, errors.New("storage directory must not be empty")
	}
	// User-only permissions: the wifi namespace holds a plaintext password.
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Partition{
		dir:        dir,
		namespaces: make(map[string]*Namespace),
	}, nil
}

// Dir returns the partition directory.
func (p *Partition) Dir() string {
	return p.dir
}

// Namespace returns the handle for name. Handles are shared so that all
// users of a namespace serialize on the same mutex.
func (p *Partition) Namespace(name string) (*Namespace, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid namespace name %q", name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if ns, ok := p.namespaces[name]; ok {
		return ns, nil
	}
	ns := &Namespace{
		name: name,
		path: filepath.Join(p.dir, name+namespaceExt),
	}
	p.namespaces[name] = ns
	return ns, nil
}

// Namespace is one independently persisted key-value map.
type Namespace struct {
	name string
	path string
	mu   sync.Mutex
}

// Name returns the namespace name.
func (n *Namespace) Name() string {
	return n.name
}

// Get decodes the value stored under key into out.
// It returns false when the key is absent.
func (n *Namespace) Get(key string, out any) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	entries, err := n.read()
	if err != nil {
		return false, err
	}
	node, ok := entries[key]
	if !ok {
		return false, nil
	}
	if err := node.Decode(out); err != nil {
		return false, &StorageError{Op: "decode", Namespace: n.name, Key: key, Err: err}
	}
	return true, nil
}

// Set stores v under key, replacing any previous value.
func (n *Namespace) Set(key string, v any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	entries, err := n.read()
	if err != nil {
		return err
	}

	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return &StorageError{Op: "encode", Namespace: n.name, Key: key, Err: err}
	}
	entries[key] = node

	return n.write(entries, key)
}

// Remove deletes key. Removing a key that does not exist succeeds.
func (n *Namespace) Remove(key string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	entries, err := n.read()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)

	if len(entries) == 0 {
		if err := os.Remove(n.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &StorageError{Op: "remove", Namespace: n.name, Key: key, Err: err}
		}
		return nil
	}
	return n.write(entries, key)
}

// Keys lists the keys present, sorted.
func (n *Namespace) Keys() ([]string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	entries, err := n.read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// read loads the namespace file. A missing file is an empty namespace.
func (n *Namespace) read() (map[string]yaml.Node, error) {
	data, err := os.ReadFile(n.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]yaml.Node), nil
	}
	if err != nil {
		return nil, &StorageError{Op: "read", Namespace: n.name, Err: err}
	}

	entries := make(map[string]yaml.Node)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, &StorageError{Op: "decode", Namespace: n.name, Err: err}
	}
	return entries, nil
}

// write persists entries atomically.
func (n *Namespace) write(entries map[string]yaml.Node, key string) error {
	data, err := yaml.Marshal(entries)
	if err != nil {
		return &StorageError{Op: "encode", Namespace: n.name, Key: key, Err: err}
	}

	tmpPath := n.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return &StorageError{Op: "write", Namespace: n.name, Key: key, Err: err}
	}
	if err := os.Rename(tmpPath, n.path); err != nil {
		_ = os.Remove(tmpPath)
		return &StorageError{Op: "write", Namespace: n.name, Key: key, Err: err}
	}
	return nil
}
