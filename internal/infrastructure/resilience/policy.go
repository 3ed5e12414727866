package resilience

import "time"

// Policy is the retry shape for one operation.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	// Operations overrides the retry policy per operation name. Zero fields
	// fall back to the Retry* defaults above.
	Operations map[string]Policy

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32

	OnStateChange func(operation, state string)
}

// DefaultConfig makes a single attempt per call.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    1,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	base := Policy{
		MaxAttempts:    out.RetryMaxAttempts,
		InitialBackoff: out.RetryInitialBackoff,
		MaxBackoff:     out.RetryMaxBackoff,
		Multiplier:     out.RetryMultiplier,
	}.withDefaults(Policy{
		MaxAttempts:    def.RetryMaxAttempts,
		InitialBackoff: def.RetryInitialBackoff,
		MaxBackoff:     def.RetryMaxBackoff,
		Multiplier:     def.RetryMultiplier,
	})
	out.RetryMaxAttempts = base.MaxAttempts
	out.RetryInitialBackoff = base.InitialBackoff
	out.RetryMaxBackoff = base.MaxBackoff
	out.RetryMultiplier = base.Multiplier

	if len(c.Operations) > 0 {
		out.Operations = make(map[string]Policy, len(c.Operations))
		for name, p := range c.Operations {
			out.Operations[name] = p.withDefaults(base)
		}
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return out
}

func (p Policy) withDefaults(def Policy) Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = def.Multiplier
	}
	return p
}

// policyFor returns the effective retry policy for an operation.
func (c Config) policyFor(operation string) Policy {
	if p, ok := c.Operations[operation]; ok {
		return p
	}
	return Policy{
		MaxAttempts:    c.RetryMaxAttempts,
		InitialBackoff: c.RetryInitialBackoff,
		MaxBackoff:     c.RetryMaxBackoff,
		Multiplier:     c.RetryMultiplier,
	}
}
