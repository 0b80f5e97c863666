package hubctl

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
)

// PWMRequest sets the duty cycle of PWM.
type PWMRequest struct {
	// On is how long power stays on in each cycle.
	On time.Duration
	// Off is how long power stays off in each cycle.
	Off time.Duration
}

// DefaultPWMRequest matches uhubpwm: 500ms on, 10ms off.
func DefaultPWMRequest() PWMRequest {
	return PWMRequest{On: 500 * time.Millisecond, Off: 10 * time.Millisecond}
}

// PWM toggles power on one port of the single actionable hub until ctx is
// done, then leaves the port powered. It returns the number of completed
// off/on cycles.
//
// Unlike Run this loop has no natural end, so it is the one operation that
// takes a context.
func (s *Session) PWM(ctx context.Context, port int, req PWMRequest) (int, error) {
	hubs := s.Actionable()
	if len(hubs) == 0 {
		return 0, ErrNoHub
	}
	if s.phys > 1 {
		return 0, fmt.Errorf("%w: need exactly one hub, %d selected", ErrMultipleHubs, s.phys)
	}
	hub := hubs[0]
	if port < 1 || port > hub.Ports {
		return 0, fmt.Errorf("%w: port %d, hub %s has %d", ErrPortRange, port, hub.Location, hub.Ports)
	}

	h, err := s.t.Open(hub.Device)
	if err != nil {
		return 0, &TransportError{Op: "open", Location: hub.Location, Err: err}
	}
	defer h.Close()

	logger := s.log.WithFields(log.Fields{"location": hub.Location, "port": port})
	set := func(on bool) {
		if err := setPortPower(h, port, on); err != nil {
			logger.WithError(err).Warn("failed to control port power")
		}
	}

	cycles := 0
	for ctx.Err() == nil {
		set(false)
		s.cfg.Sleep(ctx, req.Off)
		set(true)
		s.cfg.Sleep(ctx, req.On)
		cycles++
	}
	set(true)
	logger.WithField("cycles", cycles).Info("pwm stopped")
	return cycles, nil
}
