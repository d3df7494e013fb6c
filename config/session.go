package config

import "time"

// SessionConfig controls the per-visitor session stores.
type SessionConfig struct {
	// RestoreTimeout bounds each "who am I" call to the backend.
	RestoreTimeout time.Duration `env:"SESSION_RESTORE_TIMEOUT" envDefault:"10s"`
	// IdleTTL evicts in-memory stores unused for this long.
	IdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	// SweepInterval is how often idle stores are looked for.
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
}

// Sanitize applies guardrails to session timing.
func (s *SessionConfig) Sanitize() {
	if s.RestoreTimeout <= 0 {
		s.RestoreTimeout = 10 * time.Second
	}
	if s.IdleTTL <= 0 {
		s.IdleTTL = 30 * time.Minute
	}
	if s.SweepInterval <= 0 {
		s.SweepInterval = time.Minute
	}
	if s.SweepInterval > s.IdleTTL {
		s.SweepInterval = s.IdleTTL
	}
}
