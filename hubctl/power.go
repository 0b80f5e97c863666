package hubctl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
)

// Action is the requested change of port power.
type Action int

const (
	ActionKeep  Action = -1
	ActionOff   Action = 0
	ActionOn    Action = 1
	ActionCycle Action = 2
)

// ParseAction accepts off/on/cycle or their numeric forms 0/1/2.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "0":
		return ActionOff, nil
	case "on", "1":
		return ActionOn, nil
	case "cycle", "2":
		return ActionCycle, nil
	case "", "keep", "status":
		return ActionKeep, nil
	}
	return ActionKeep, fmt.Errorf("unknown action %q, want off, on or cycle", s)
}

func (a Action) String() string {
	switch a {
	case ActionOff:
		return "off"
	case ActionOn:
		return "on"
	case ActionCycle:
		return "cycle"
	default:
		return "keep"
	}
}

// Pass is one half of a power sequence.
type Pass int

const (
	PassOff Pass = iota
	PassOn
)

func (p Pass) String() string {
	if p == PassOn {
		return "on"
	}
	return "off"
}

// Passes lists the passes the action runs, in order.
func (a Action) Passes() []Pass {
	switch a {
	case ActionOff:
		return []Pass{PassOff}
	case ActionOn:
		return []Pass{PassOn}
	case ActionCycle:
		return []Pass{PassOff, PassOn}
	}
	return nil
}

// PortMask selects ports; bit 0 is port 1.
type PortMask uint32

// AllPorts selects every port of a hub.
const AllPorts PortMask = 1<<32 - 1

// MaxPorts is the highest port number a PortMask can address.
const MaxPorts = 32

// ParsePorts accepts "all", a run of single digits ("1234") or a comma
// separated list ("1,2,10").
func ParsePorts(s string) (PortMask, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return AllPorts, nil
	}
	var fields []string
	if strings.Contains(s, ",") {
		fields = strings.Split(s, ",")
	} else {
		fields = strings.Split(s, "")
	}
	var m PortMask
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n < 1 || n > MaxPorts {
			return 0, fmt.Errorf("%q must be a list of ports 1 to %d", s, MaxPorts)
		}
		m |= 1 << (n - 1)
	}
	return m, nil
}

// Has reports whether port is selected.
func (m PortMask) Has(port int) bool {
	return port >= 1 && port <= MaxPorts && m&(1<<(port-1)) != 0
}

// Bounded drops ports above nports.
func (m PortMask) Bounded(nports int) PortMask {
	if nports >= MaxPorts {
		return m
	}
	return m & (1<<nports - 1)
}

// Request describes a power sequence.
type Request struct {
	Ports  PortMask
	Action Action
	// Delay separates the off and on passes of a cycle.
	Delay time.Duration
	// Repeat is how many times power off is sent; some hubs only latch
	// the change after several requests.
	Repeat int
	// Wait separates repeated power off requests.
	Wait time.Duration
	// Reset resets the hub after the power on pass.
	Reset bool
}

// DefaultRequest returns the uhubctl defaults: all ports, status only,
// 2s cycle delay, one power off request, 20ms between repeats.
func DefaultRequest() Request {
	return Request{
		Ports:  AllPorts,
		Action: ActionKeep,
		Delay:  2 * time.Second,
		Repeat: 1,
		Wait:   20 * time.Millisecond,
	}
}

// PortResult is the outcome of one pass on one port.
type PortResult struct {
	Port int
	// Skipped is set when the port was already in the target state.
	Skipped   bool
	Transfers int
	Err       error
}

// PassResult is the outcome of one pass on one hub.
type PassResult struct {
	Hub   *Hub
	Pass  Pass
	Ports []PortResult
	// Err is set when the hub could not be opened at all.
	Err error
	// Reset is set when Apply or Run reset the hub after this on pass.
	Reset    bool
	ResetErr error
}

// Errors collects every failure recorded in the pass.
func (r PassResult) Errors() []error {
	var out []error
	if r.Err != nil {
		out = append(out, r.Err)
	}
	for _, p := range r.Ports {
		if p.Err != nil {
			out = append(out, p.Err)
		}
	}
	if r.ResetErr != nil {
		out = append(out, r.ResetErr)
	}
	return out
}

// ApplyPass switches the selected ports of hub off or on. Ports already in
// the target state are left alone. Failures are logged and recorded in the
// result; they never stop the remaining ports. ApplyPass never resets the
// hub; see ResetHub.
func (s *Session) ApplyPass(hub *Hub, pass Pass, req Request) PassResult {
	res := PassResult{Hub: hub, Pass: pass}
	logger := s.log.WithFields(log.Fields{"location": hub.Location, "pass": pass})

	h, err := s.t.Open(hub.Device)
	if err != nil {
		res.Err = &TransportError{Op: "open", Location: hub.Location, Err: err}
		logger.WithError(err).Warn("cannot open hub")
		return res
	}
	defer h.Close()

	gen := hub.Generation()
	ports := req.Ports.Bounded(hub.Ports)
	for port := 1; port <= hub.Ports && port <= MaxPorts; port++ {
		if !ports.Has(port) {
			continue
		}
		res.Ports = append(res.Ports, s.switchPort(h, hub, port, pass, req, logger))
	}

	if pass == PassOff && gen == GenUSB3 {
		s.sleep(s.cfg.SettleDelay)
	}
	return res
}

// ResetHub resets hub, making every device behind it reattach.
func (s *Session) ResetHub(hub *Hub) error {
	logger := s.log.WithField("location", hub.Location)
	h, err := s.t.Open(hub.Device)
	if err != nil {
		logger.WithError(err).Warn("cannot open hub")
		return &TransportError{Op: "open", Location: hub.Location, Err: err}
	}
	defer h.Close()
	if err := h.Reset(); err != nil {
		logger.WithError(err).Warn("hub reset failed")
		return &TransportError{Op: "reset", Location: hub.Location, Err: err}
	}
	logger.Info("hub reset")
	return nil
}

func (s *Session) sleep(d time.Duration) {
	s.cfg.Sleep(context.Background(), d)
}

func (s *Session) switchPort(h Handle, hub *Hub, port int, pass Pass, req Request, logger log.Interface) PortResult {
	pr := PortResult{Port: port}
	gen := hub.Generation()
	st, err := getPortStatus(h, port)
	if err != nil {
		pr.Err = &TransportError{Op: "get port status", Location: hub.Location, Port: port, Err: err}
		logger.WithField("port", port).WithError(err).Warn("cannot read port status")
		return pr
	}
	on := pass == PassOn
	if st.Powered(gen) == on {
		pr.Skipped = true
		return pr
	}

	repeat := 1
	if !on && req.Repeat > 1 {
		repeat = req.Repeat
	}
	if st.Idle(gen) {
		repeat = 1
	}
	for ; repeat > 0; repeat-- {
		pr.Transfers++
		if err := setPortPower(h, port, on); err != nil {
			pr.Err = &TransportError{Op: "set port power " + pass.String(), Location: hub.Location, Port: port, Err: err}
			logger.WithField("port", port).WithError(err).Warn("failed to control port power")
		}
		if repeat > 1 {
			s.sleep(req.Wait)
		}
	}
	return pr
}

// Apply runs the whole sequence of req on one hub: the off pass, the cycle
// delay, the on pass and the reset, as the request asks.
func (s *Session) Apply(hub *Hub, req Request) []PassResult {
	var out []PassResult
	for i, pass := range req.Action.Passes() {
		if i > 0 {
			s.sleep(req.Delay)
		}
		res := s.ApplyPass(hub, pass, req)
		if pass == PassOn && req.Reset && res.Err == nil {
			res.Reset = true
			res.ResetErr = s.ResetHub(hub)
		}
		out = append(out, res)
	}
	return out
}

// Hooks observe Run. Any may be nil.
type Hooks struct {
	BeforePass func(hub *Hub, pass Pass)
	AfterPass  func(res PassResult)
	// BeforeReset and AfterReset surround the reset that follows the on
	// pass of a hub when the request asks for one.
	BeforeReset func(hub *Hub)
	AfterReset  func(hub *Hub, err error)
}

// Run applies req to every actionable hub. Passes are the outer loop, so
// both controllers of a dual hub go off, then the cycle delay elapses once,
// then both come back on. A requested reset follows each hub's on pass,
// after AfterPass has seen the new port state.
//
// A state-changing request while more than one physical hub is actionable
// is rejected with ErrMultipleHubs before anything is sent.
func (s *Session) Run(req Request, hooks Hooks) ([]PassResult, error) {
	if req.Action != ActionKeep && s.phys > 1 {
		return nil, fmt.Errorf("%w: %d hubs selected, narrow the location", ErrMultipleHubs, s.phys)
	}
	hubs := s.Actionable()
	var out []PassResult
	for _, pass := range req.Action.Passes() {
		for _, hub := range hubs {
			if hooks.BeforePass != nil {
				hooks.BeforePass(hub, pass)
			}
			res := s.ApplyPass(hub, pass, req)
			if hooks.AfterPass != nil {
				hooks.AfterPass(res)
			}
			if pass == PassOn && req.Reset && res.Err == nil {
				if hooks.BeforeReset != nil {
					hooks.BeforeReset(hub)
				}
				res.Reset = true
				res.ResetErr = s.ResetHub(hub)
				if hooks.AfterReset != nil {
					hooks.AfterReset(hub, res.ResetErr)
				}
			}
			out = append(out, res)
		}
		if pass == PassOff && req.Action == ActionCycle {
			s.sleep(req.Delay)
		}
	}
	return out, nil
}
