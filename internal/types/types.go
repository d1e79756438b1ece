package types

import (
	"fmt"
	"time"
)

// ServerStatus is the classification of the monitored server derived from
// dashboard page content. It is recomputed every cycle and never cached.
type ServerStatus string

const (
	StatusUnknown ServerStatus = "unknown"
	StatusOnline  ServerStatus = "online"
	StatusOffline ServerStatus = "offline"
)

// Credentials are the dashboard account credentials.
type Credentials struct {
	Email    string
	Password string
}

// String never includes the password.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Email: %q}", c.Email)
}

// Outcome is the coarse result of one keep-alive cycle.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeActionTaken Outcome = "action_taken"
	OutcomeFailed      Outcome = "failed"
)

// CycleResult describes one keep-alive cycle. Reason is set only for failures.
type CycleResult struct {
	Seq       int           `json:"seq"`
	Outcome   Outcome       `json:"outcome"`
	Status    ServerStatus  `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// Failed reports whether the cycle ended in a failure.
func (r CycleResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// RetryPolicy bounds how often a step is retried. Attempts = Retries + 1 and
// the k-th retry waits BaseDelay * Factor^(k-1).
type RetryPolicy struct {
	Retries   int           `toml:"retries"`
	Factor    float64       `toml:"factor"`
	BaseDelay time.Duration `toml:"base_delay"`
}

// RunBudget bounds the keep-alive loop.
type RunBudget struct {
	MaxRuntime time.Duration
	Interval   time.Duration
}
