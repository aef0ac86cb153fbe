package devices

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/pico-keys/go-pico/pkg/options"
)

// DefaultPollInterval is the hot-plug rescan period.
const DefaultPollInterval = 2 * time.Second

// ChangeEvent carries the full device list published whenever the
// device population changes.
type ChangeEvent struct {
	ID      uuid.UUID
	Devices []Descriptor
}

// Monitor polls the manager on a fixed interval and publishes a
// ChangeEvent when the set of device paths differs from the previous
// scan.
type Monitor struct {
	logger   *slog.Logger
	manager  *Manager
	interval time.Duration
	events   chan ChangeEvent

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMonitor starts the polling loop. A non-positive interval falls
// back to DefaultPollInterval.
func NewMonitor(manager *Manager, interval time.Duration, opts ...options.Option) *Monitor {
	oo := options.NewOptions(opts...)
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	m := &Monitor{
		logger:   oo.Logger,
		manager:  manager,
		interval: interval,
		events:   make(chan ChangeEvent, 1),
		stop:     make(chan struct{}),
	}
	go m.run()
	return m
}

// Events is the channel change notifications arrive on.
func (m *Monitor) Events() <-chan ChangeEvent {
	return m.events
}

// Close stops the polling loop. It is safe to call more than once.
func (m *Monitor) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// The baseline starts empty so devices already present when the
	// monitor starts are published on the first tick.
	var previous []Descriptor
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			current := m.manager.Scan()
			if !devicesChanged(previous, current) {
				continue
			}
			previous = current

			event := ChangeEvent{ID: uuid.New(), Devices: current}
			select {
			case m.events <- event:
			default:
				m.logger.Debug("device change event dropped, receiver not keeping up", "id", event.ID)
			}
		}
	}
}

// devicesChanged compares two scans by their set of paths. The test
// is order-independent and ignores every other descriptor field: the
// question is whether the population changed, not the metadata.
func devicesChanged(prev, cur []Descriptor) bool {
	if len(prev) != len(cur) {
		return true
	}

	pathSet := func(devices []Descriptor) map[string]struct{} {
		return lo.SliceToMap(devices, func(d Descriptor) (string, struct{}) {
			return d.Path, struct{}{}
		})
	}
	prevPaths, curPaths := pathSet(prev), pathSet(cur)
	if len(prevPaths) != len(curPaths) {
		return true
	}
	for path := range curPaths {
		if _, ok := prevPaths[path]; !ok {
			return true
		}
	}
	return false
}
