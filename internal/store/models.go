package store

import "time"

// Run is one process invocation (a loop run or a single-shot attempt)
type Run struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Cycles     int       `json:"cycles"`
	Outcome    string    `json:"outcome"`
}

// Cycle is one recorded keep-alive cycle
type Cycle struct {
	ID        int64         `json:"id"`
	RunID     string        `json:"run_id"`
	Seq       int           `json:"seq"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"`
	Outcome   string        `json:"outcome"`
	Reason    string        `json:"reason,omitempty"`
}
