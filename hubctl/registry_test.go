package hubctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverBuildsHubTable(t *testing.T) {
	hub := newHub(1, []int{2}, 0x0200, 0x2001, 0xf103, 4, charsPPPS)
	hub.manufacturer = "D-Link  "
	hub.product = "DUB-H7\t"
	tr := &fakeTransport{devs: []*fakeDev{
		newHub(1, nil, 0x0200, 0x1d6b, 0x0002, 6, charsGanged),
		hub,
		newPeripheral(1, []int{2, 1}, 0x0403, 0x6001),
	}}
	s, _ := newTestSession(tr)

	n, err := s.Discover(Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hubs := s.Hubs()
	require.Len(t, hubs, 1)
	h := hubs[0]
	assert.Equal(t, "1-2", h.Location)
	assert.Equal(t, "2001:f103", h.Vendor)
	assert.Equal(t, 4, h.Ports)
	assert.True(t, h.PPPS)
	assert.True(t, h.Actionable)
	assert.Equal(t, "2001:f103 D-Link DUB-H7, USB 2.00, 4 ports", h.Description)
	assert.Len(t, s.Devices(), 3)
	assert.Equal(t, tr.opens, tr.closes)
}

func TestDiscoverLocationString(t *testing.T) {
	tr := &fakeTransport{devs: []*fakeDev{
		newHub(3, []int{1, 4, 2}, 0x0200, 0x0424, 0x2514, 4, charsPPPS),
		newHub(3, []int{1, 4}, 0x0200, 0x0424, 0x2514, 4, charsPPPS),
		newHub(3, []int{14}, 0x0200, 0x0424, 0x2514, 4, charsPPPS),
		newHub(3, []int{1, 4, 2}, 0x0200, 0x0424, 0x2514, 4, charsPPPS),
	}}
	tr.devs[3].dev.Bus = 4
	s, _ := newTestSession(tr)
	_, err := s.Discover(Filter{Exact: true})
	require.NoError(t, err)

	var locs []string
	for _, h := range s.Hubs() {
		locs = append(locs, h.Location)
	}
	assert.Equal(t, []string{"3-1.4.2", "3-1.4", "3-14", "4-1.4.2"}, locs)
}

func TestDiscoverLocationFilter(t *testing.T) {
	tr := &fakeTransport{devs: []*fakeDev{
		newHub(2, []int{1}, 0x0200, 0x2001, 0xf103, 7, charsPPPS),
		newHub(2, []int{2}, 0x0200, 0x2001, 0xf103, 7, charsPPPS),
	}}
	s, _ := newTestSession(tr)
	n, err := s.Discover(Filter{Location: "2-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hubs := s.Hubs()
	require.Len(t, hubs, 2)
	assert.True(t, hubs[0].Actionable)
	assert.False(t, hubs[1].Actionable)
	assert.Equal(t, []*Hub{hubs[0]}, s.Actionable())
}

func TestDiscoverVendorFilter(t *testing.T) {
	tr := &fakeTransport{devs: []*fakeDev{
		newHub(1, []int{1}, 0x0200, 0x2001, 0xa101, 4, charsPPPS),
		newHub(1, []int{2}, 0x0200, 0x0451, 0x8140, 4, charsPPPS),
	}}
	s, _ := newTestSession(tr)

	for _, vendor := range []string{"2001", "2001:A1", "2001:a101"} {
		n, err := s.Discover(Filter{Vendor: vendor})
		require.NoError(t, err)
		assert.Equal(t, 1, n, vendor)
		hubs := s.Hubs()
		assert.True(t, hubs[0].Actionable, vendor)
		assert.False(t, hubs[1].Actionable, vendor)
	}

	n, err := s.Discover(Filter{Vendor: "2001:a1011"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDiscoverSkipsNonQualifyingHubs(t *testing.T) {
	tr := &fakeTransport{devs: []*fakeDev{
		newHub(1, []int{1}, 0x0200, 0x05e3, 0x0608, 4, charsGanged),
		newHub(1, []int{2}, 0x0200, 0x05e3, 0x0608, 4, hubCharLPSMPort|hubCharOCPM),
		newHub(1, []int{3}, 0x0200, 0x05e3, 0x0608, 0, charsPPPS),
	}}
	s, _ := newTestSession(tr)
	n, err := s.Discover(Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, s.Hubs())
}

func TestDiscoverAccessError(t *testing.T) {
	locked := newHub(1, []int{1}, 0x0200, 0x2001, 0xf103, 4, charsPPPS)
	locked.openErr = errFakeIO
	tr := &fakeTransport{devs: []*fakeDev{locked}}
	s, _ := newTestSession(tr)

	_, err := s.Discover(Filter{})
	assert.ErrorIs(t, err, ErrAccess)
}

func TestDiscoverShortDescriptorIsAccessSignal(t *testing.T) {
	short := newHub(1, []int{1}, 0x0200, 0x2001, 0xf103, 4, charsPPPS)
	short.hubDesc = short.hubDesc[:5]
	tr := &fakeTransport{devs: []*fakeDev{short}}
	s, _ := newTestSession(tr)

	_, err := s.Discover(Filter{})
	assert.ErrorIs(t, err, ErrAccess)
}

func TestDiscoverAccessErrorMaskedByWorkingHub(t *testing.T) {
	locked := newHub(1, []int{1}, 0x0200, 0x2001, 0xf103, 4, charsPPPS)
	locked.openErr = errFakeIO
	tr := &fakeTransport{devs: []*fakeDev{
		locked,
		newHub(1, []int{2}, 0x0200, 0x2001, 0xf103, 4, charsPPPS),
	}}
	s, _ := newTestSession(tr)

	n, err := s.Discover(Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDiscoverNoHubsIsNotAnError(t *testing.T) {
	tr := &fakeTransport{devs: []*fakeDev{newPeripheral(1, []int{1}, 0x046d, 0xc52b)}}
	s, _ := newTestSession(tr)
	n, err := s.Discover(Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDiscoverCapacity(t *testing.T) {
	tr := &fakeTransport{}
	for p := 1; p <= 5; p++ {
		tr.devs = append(tr.devs, newHub(1, []int{p}, 0x0200, 0x2001, 0xf103, 4, charsPPPS))
	}
	s, logs := newTestSession(tr)
	s.cfg.MaxHubs = 3

	n, err := s.Discover(Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, s.Hubs(), 3)

	drops := 0
	for _, e := range logs.Entries {
		if e.Message == "hub table full, dropping hub" {
			drops++
		}
	}
	assert.Equal(t, 2, drops)
}

func TestDiscoverChainTooDeep(t *testing.T) {
	tr := &fakeTransport{devs: []*fakeDev{
		newHub(1, []int{1, 1, 1, 1, 1, 1, 1, 1, 1}, 0x0200, 0x2001, 0xf103, 4, charsPPPS),
		newHub(1, []int{1, 1, 1, 1, 1, 1, 1, 1}, 0x0200, 0x2001, 0xf103, 4, charsPPPS),
	}}
	s, _ := newTestSession(tr)
	n, err := s.Discover(Filter{Exact: true})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, s.Hubs(), 1)
	assert.Equal(t, "1-1.1.1.1.1.1.1.1", s.Hubs()[0].Location)
}

func TestDiscoverRebuildsSnapshot(t *testing.T) {
	tr := &fakeTransport{devs: []*fakeDev{
		newHub(1, []int{1}, 0x0200, 0x2001, 0xf103, 4, charsPPPS),
	}}
	s, _ := newTestSession(tr)
	_, err := s.Discover(Filter{})
	require.NoError(t, err)
	require.Len(t, s.Hubs(), 1)

	tr.devs = append(tr.devs, newHub(1, []int{2}, 0x0200, 0x2001, 0xf103, 4, charsPPPS))
	_, err = s.Discover(Filter{Location: "1-2"})
	require.NoError(t, err)
	hubs := s.Hubs()
	require.Len(t, hubs, 2)
	assert.False(t, hubs[0].Actionable)
	assert.True(t, hubs[1].Actionable)
}

func TestSessionDownstreamAndPortStatus(t *testing.T) {
	hub := newHub(1, []int{3}, 0x0200, 0x2001, 0xf103, 4, charsPPPS)
	hub.status[2] = PortStatPower | PortStatHighSpeed | PortStatEnable | PortStatConnection
	kbd := newPeripheral(1, []int{3, 2}, 0x046d, 0xc31c)
	deeper := newPeripheral(1, []int{3, 2, 1}, 0x0781, 0x5567)
	tr := &fakeTransport{devs: []*fakeDev{hub, kbd, deeper}}
	s, _ := newTestSession(tr)
	_, err := s.Discover(Filter{})
	require.NoError(t, err)

	h := s.Hubs()[0]
	assert.Same(t, kbd.dev, s.Downstream(h, 2))
	assert.Nil(t, s.Downstream(h, 1))

	st, err := s.PortStatus(h, 2)
	require.NoError(t, err)
	assert.True(t, st.Connected())
	assert.Equal(t, []string{"power", "highspeed", "enable", "connect"}, st.Flags(GenUSB2))

	_, err = s.PortStatus(h, 5)
	assert.ErrorIs(t, err, ErrPortRange)

	hub.statusErr = errFakeIO
	_, err = s.PortStatus(h, 1)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.Port)
	assert.ErrorIs(t, err, errFakeIO)
}

func TestSessionClose(t *testing.T) {
	tr := &fakeTransport{}
	s, _ := newTestSession(tr)
	require.NoError(t, s.Close())
	assert.True(t, tr.closed)
}
