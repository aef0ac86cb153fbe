// Package devices discovers Pico-FIDO and Pico-HSM tokens over USB
// HID and PC/SC, tracks which device paths are in use, and runs a
// hot-plug monitor publishing change events.
package devices

import (
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/pico-keys/go-pico/pkg/options"
)

type backend interface {
	scan() ([]Descriptor, error)
}

// Manager scans both transports and maintains the opened-path set.
type Manager struct {
	logger   *slog.Logger
	backends []backend

	mu     sync.Mutex
	opened map[string]struct{}
}

func NewManager(opts ...options.Option) *Manager {
	oo := options.NewOptions(opts...)

	return &Manager{
		logger:   oo.Logger,
		backends: []backend{hidBackend{}, pcscBackend{}},
		opened:   make(map[string]struct{}),
	}
}

// Scan enumerates all known tokens. It never fails as a whole: a
// backend whose transport stack is unavailable contributes zero
// devices while the other backend's results are still returned.
func (m *Manager) Scan() []Descriptor {
	var devices []Descriptor
	for _, b := range m.backends {
		found, err := b.scan()
		if err != nil {
			m.logger.Debug("device scan backend failed", "err", err)
			continue
		}
		devices = append(devices, found...)
	}
	return devices
}

// Open marks a device path as in use. Opening an already-open path
// succeeds without re-validation; otherwise a fresh scan must contain
// the path. The opened set exists for UI state only and holds no
// transport connection.
func (m *Manager) Open(path string) error {
	m.mu.Lock()
	_, alreadyOpen := m.opened[path]
	m.mu.Unlock()
	if alreadyOpen {
		return nil
	}

	devices := m.Scan()
	if !lo.SomeBy(devices, func(d Descriptor) bool { return d.Path == path }) {
		return &NotFoundError{Path: path}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened[path] = struct{}{}
	return nil
}

// Close removes a path from the opened set.
func (m *Manager) Close(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.opened[path]; !ok {
		return &NotFoundError{Path: path}
	}
	delete(m.opened, path)
	return nil
}

// Opened returns the paths currently marked as in use.
func (m *Manager) Opened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Keys(m.opened)
}
