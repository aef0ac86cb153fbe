package devices

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu      sync.Mutex
	devices []Descriptor
	err     error
}

func (b *fakeBackend) scan() ([]Descriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.devices, b.err
}

func (b *fakeBackend) set(devices []Descriptor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices = devices
}

func newTestManager(backends ...backend) *Manager {
	m := NewManager()
	m.backends = backends
	return m
}

func TestScan_UnionsBackends(t *testing.T) {
	m := newTestManager(
		&fakeBackend{devices: []Descriptor{{Type: FidoToken, Path: "hid-0"}}},
		&fakeBackend{devices: []Descriptor{{Type: HsmToken, Path: "Reader 0"}}},
	)

	devices := m.Scan()
	require.Len(t, devices, 2)
	assert.Equal(t, "hid-0", devices[0].Path)
	assert.Equal(t, "Reader 0", devices[1].Path)
}

func TestScan_SwallowsBackendFailure(t *testing.T) {
	m := newTestManager(
		&fakeBackend{err: errors.New("hid subsystem unavailable")},
		&fakeBackend{devices: []Descriptor{{Type: HsmToken, Path: "Reader 0"}}},
	)

	devices := m.Scan()
	require.Len(t, devices, 1)
	assert.Equal(t, "Reader 0", devices[0].Path)
}

func TestOpen_RequiresLivePath(t *testing.T) {
	m := newTestManager(&fakeBackend{devices: []Descriptor{{Path: "hid-0"}}})

	require.NoError(t, m.Open("hid-0"))
	assert.Equal(t, []string{"hid-0"}, m.Opened())

	var notFound *NotFoundError
	err := m.Open("hid-missing")
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "hid-missing", notFound.Path)
}

func TestOpen_Idempotent(t *testing.T) {
	b := &fakeBackend{devices: []Descriptor{{Path: "hid-0"}}}
	m := newTestManager(b)

	require.NoError(t, m.Open("hid-0"))

	// Re-opening skips validation even after the device vanished.
	b.set(nil)
	assert.NoError(t, m.Open("hid-0"))
}

func TestClose(t *testing.T) {
	m := newTestManager(&fakeBackend{devices: []Descriptor{{Path: "hid-0"}}})

	var notFound *NotFoundError
	require.ErrorAs(t, m.Close("hid-0"), &notFound)

	require.NoError(t, m.Open("hid-0"))
	require.NoError(t, m.Close("hid-0"))
	assert.Empty(t, m.Opened())
}

func TestDevicesChanged(t *testing.T) {
	a := Descriptor{Path: "a"}
	b := Descriptor{Path: "b"}

	assert.False(t, devicesChanged([]Descriptor{a, b}, []Descriptor{b, a}))
	assert.False(t, devicesChanged(nil, nil))
	assert.True(t, devicesChanged(nil, []Descriptor{a}))
	assert.True(t, devicesChanged([]Descriptor{a}, nil))
	assert.True(t, devicesChanged([]Descriptor{a}, []Descriptor{b}))
	assert.True(t, devicesChanged([]Descriptor{a, b}, []Descriptor{a, a}))
	assert.True(t, devicesChanged([]Descriptor{a, a}, []Descriptor{a, b}))
}

func TestDevicesChanged_IgnoresMetadata(t *testing.T) {
	prev := []Descriptor{{Path: "a", FirmwareVersion: "1.0"}}
	cur := []Descriptor{{Path: "a", FirmwareVersion: "2.0", Serial: "changed"}}

	assert.False(t, devicesChanged(prev, cur))
}

func TestHasHSMMarker(t *testing.T) {
	assert.True(t, hasHSMMarker([]byte{0x3B, 0x54, 0x48, 0x53, 0x4D, 0x01}))
	assert.True(t, hasHSMMarker([]byte{0x54, 0x48, 0x53, 0x4D}))
	assert.False(t, hasHSMMarker([]byte{0x3B, 0x54, 0x48, 0x53}))
	assert.False(t, hasHSMMarker(nil))
}

func TestAtrVersion(t *testing.T) {
	atr := make([]byte, 23)
	atr[20], atr[21] = 3, 5
	assert.Equal(t, "3.5", atrVersion(atr))

	atr[20] = 0
	assert.Equal(t, "unknown", atrVersion(atr))

	assert.Equal(t, "unknown", atrVersion(make([]byte, 22)))
}

func TestReleaseVersion(t *testing.T) {
	assert.Equal(t, "1.2", releaseVersion(0x0102))
	assert.Equal(t, "unknown", releaseVersion(0))
}

func TestIsFidoIdentity(t *testing.T) {
	assert.True(t, isFidoIdentity(0x2E8A, 0x10FE))
	assert.True(t, isFidoIdentity(0x20A0, 0x42B2))
	assert.False(t, isFidoIdentity(0x2E8A, 0x42B2))
	assert.False(t, isFidoIdentity(0x1050, 0x0407))
}

func TestMonitor_PublishesOnChange(t *testing.T) {
	b := &fakeBackend{}
	m := newTestManager(b)

	monitor := NewMonitor(m, 5*time.Millisecond)
	defer monitor.Close()

	b.set([]Descriptor{{Type: FidoToken, Path: "hid-0"}})

	select {
	case event := <-monitor.Events():
		require.Len(t, event.Devices, 1)
		assert.Equal(t, "hid-0", event.Devices[0].Path)
		assert.NotEqual(t, [16]byte{}, [16]byte(event.ID))
	case <-time.After(time.Second):
		t.Fatal("no change event published")
	}
}

func TestMonitor_PublishesPopulationPresentAtStartup(t *testing.T) {
	b := &fakeBackend{devices: []Descriptor{{Type: HsmToken, Path: "Reader 0"}}}
	m := newTestManager(b)

	monitor := NewMonitor(m, 5*time.Millisecond)
	defer monitor.Close()

	select {
	case event := <-monitor.Events():
		require.Len(t, event.Devices, 1)
		assert.Equal(t, "Reader 0", event.Devices[0].Path)
	case <-time.After(time.Second):
		t.Fatal("no event for devices present before the monitor started")
	}
}

func TestMonitor_CloseIsIdempotent(t *testing.T) {
	monitor := NewMonitor(newTestManager(&fakeBackend{}), 5*time.Millisecond)
	monitor.Close()
	monitor.Close()
}
