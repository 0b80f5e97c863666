package hubctl

import (
	"context"
	"time"

	"github.com/apex/log"
)

// Config tunes discovery limits and power sequencing timing.
type Config struct {
	// MaxHubs caps the hub table. Qualifying hubs beyond it are dropped.
	MaxHubs int
	// MaxHubChain is the deepest port chain accepted for a hub location.
	// USB 3.0 allows at most 7 tiers below the root.
	MaxHubChain int
	// SettleDelay is slept after a power-off pass on a USB3 hub; such hubs
	// need extra time before the port actually de-energizes.
	SettleDelay time.Duration
	Logger      log.Interface
	// Sleep blocks for the given duration or until ctx is done, whichever
	// comes first. Defaults to SleepContext.
	Sleep func(ctx context.Context, d time.Duration)
}

// DefaultConfig returns the limits uhubctl has always used.
func DefaultConfig() Config {
	return Config{
		MaxHubs:     128,
		MaxHubChain: 8,
		SettleDelay: 150 * time.Millisecond,
		Logger:      log.Log,
		Sleep:       SleepContext,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxHubs <= 0 {
		c.MaxHubs = d.MaxHubs
	}
	if c.MaxHubChain <= 0 {
		c.MaxHubChain = d.MaxHubChain
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	if c.Sleep == nil {
		c.Sleep = d.Sleep
	}
	return c
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
