package storage

import (
	"context"
	"sync"

	"svw.info/hunt/internal/ports"
)

// Memory keeps every namespace in process memory. Used by tests and by the
// "memory" backend.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func NewMemory() *Memory { return &Memory{data: map[string]map[string]string{}} }

func (m *Memory) Namespace(name string) ports.KeyValue { return &memoryNS{m: m, name: name} }

type memoryNS struct {
	m    *Memory
	name string
}

func (n *memoryNS) Get(ctx context.Context, key string) (string, bool, error) {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	v, ok := n.m.data[n.name][key]
	return v, ok, nil
}

func (n *memoryNS) Set(ctx context.Context, key, value string) error {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	ns, ok := n.m.data[n.name]
	if !ok {
		ns = map[string]string{}
		n.m.data[n.name] = ns
	}
	ns[key] = value
	return nil
}

func (n *memoryNS) Remove(ctx context.Context, key string) error {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	delete(n.m.data[n.name], key)
	return nil
}

func (n *memoryNS) Clear(ctx context.Context) error {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	delete(n.m.data, n.name)
	return nil
}
