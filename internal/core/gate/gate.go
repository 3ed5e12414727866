// Package gate suppresses bursty and repeated detections from a live decoder.
package gate

import "time"

type Config struct {
	MinInterval      time.Duration
	SameCodeCooldown time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinInterval:      650 * time.Millisecond,
		SameCodeCooldown: 1800 * time.Millisecond,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()
	if out.MinInterval < 0 {
		out.MinInterval = def.MinInterval
	}
	if out.SameCodeCooldown < 0 {
		out.SameCodeCooldown = def.SameCodeCooldown
	}
	return out
}

type Decision string

const (
	Accepted         Decision = "accepted"
	RejectedInterval Decision = "rejected_interval"
	RejectedCooldown Decision = "rejected_cooldown"
)

// Gate is owned by a single scan session and is not safe for concurrent use.
// Both thresholds are measured from the same last acceptance, so a different
// payload inside MinInterval is still rejected.
type Gate struct {
	cfg Config

	lastRaw        string
	lastAcceptedAt time.Time
	armed          bool
}

func New(cfg Config) *Gate {
	return &Gate{cfg: cfg.normalize()}
}

func (g *Gate) Config() Config {
	return g.cfg
}

// Accept reports whether the detection should be resolved.
func (g *Gate) Accept(raw string, now time.Time) bool {
	return g.Decide(raw, now) == Accepted
}

// Decide is Accept with the reason for a rejection.
func (g *Gate) Decide(raw string, now time.Time) Decision {
	if g.armed {
		elapsed := now.Sub(g.lastAcceptedAt)
		if elapsed < g.cfg.MinInterval {
			return RejectedInterval
		}
		if raw == g.lastRaw && elapsed < g.cfg.SameCodeCooldown {
			return RejectedCooldown
		}
	}
	g.lastRaw = raw
	g.lastAcceptedAt = now
	g.armed = true
	return Accepted
}

// Reset forgets the last acceptance so the next detection always passes.
func (g *Gate) Reset() {
	g.lastRaw = ""
	g.lastAcceptedAt = time.Time{}
	g.armed = false
}

func (g *Gate) LastAccepted() (string, time.Time, bool) {
	return g.lastRaw, g.lastAcceptedAt, g.armed
}
