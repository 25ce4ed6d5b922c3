package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"svw.info/hunt/internal/ports"
)

var errBadNamespace = errors.New("invalid namespace name")

// FS stores each namespace as one JSON object file: {dir}/{namespace}.json.
type FS struct {
	dir string
	mu  sync.Mutex
}

func NewFS(dir string) *FS { return &FS{dir: dir} }

func (s *FS) Namespace(name string) ports.KeyValue { return &fsNS{fs: s, name: name} }

func (s *FS) pathFor(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", errBadNamespace
	}
	return filepath.Join(s.dir, name+".json"), nil
}

func (s *FS) read(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	out := map[string]string{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// write replaces the file through a rename so readers never see a partial object.
func (s *FS) write(path string, m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".kv-*")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// List returns the namespaces present on disk.
func (s *FS) List(ctx context.Context) ([]string, error) {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".json"))
	}
	return out, nil
}

type fsNS struct {
	fs   *FS
	name string
}

func (n *fsNS) Get(ctx context.Context, key string) (string, bool, error) {
	path, err := n.fs.pathFor(n.name)
	if err != nil {
		return "", false, err
	}
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	m, err := n.fs.read(path)
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

func (n *fsNS) Set(ctx context.Context, key, value string) error {
	path, err := n.fs.pathFor(n.name)
	if err != nil {
		return err
	}
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	m, err := n.fs.read(path)
	if err != nil {
		return err
	}
	m[key] = value
	return n.fs.write(path, m)
}

func (n *fsNS) Remove(ctx context.Context, key string) error {
	path, err := n.fs.pathFor(n.name)
	if err != nil {
		return err
	}
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	m, err := n.fs.read(path)
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return n.fs.write(path, m)
}

func (n *fsNS) Clear(ctx context.Context) error {
	path, err := n.fs.pathFor(n.name)
	if err != nil {
		return err
	}
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
