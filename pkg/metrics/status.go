package metrics

import (
	"sync"
	"time"
)

// Run states reported by RunStatus.
const (
	StateIdle     = "idle"
	StateRunning  = "running"
	StateFinished = "finished"
)

// RunStatus tracks the live state of the current migration run for the
// /status endpoint. It is fed through the MigrationMetrics returned by
// NewMigrationMetrics.
//
// All methods are safe for concurrent use.
type RunStatus struct {
	mu sync.Mutex

	runID         string
	direction     string
	state         string
	started       time.Time
	finished      time.Time
	currentToken  string
	tokensDone    int
	tokensSkipped int
	processed     int
	moved         int
	failed        int
	catalogErrors int

	now func() time.Time
}

// StatusSnapshot is a point-in-time copy of a RunStatus.
type StatusSnapshot struct {
	RunID         string    `json:"run_id,omitempty"`
	Direction     string    `json:"direction,omitempty"`
	State         string    `json:"state"`
	Started       time.Time `json:"started,omitzero"`
	Finished      time.Time `json:"finished,omitzero"`
	Elapsed       string    `json:"elapsed,omitempty"`
	CurrentToken  string    `json:"current_token,omitempty"`
	TokensDone    int       `json:"tokens_done"`
	TokensSkipped int       `json:"tokens_skipped"`
	Processed     int       `json:"processed"`
	Moved         int       `json:"moved"`
	Failed        int       `json:"failed"`
	CatalogErrors int       `json:"catalog_errors"`
}

// NewRunStatus returns an idle status.
func NewRunStatus() *RunStatus {
	return &RunStatus{state: StateIdle, now: time.Now}
}

// Snapshot copies the current state.
func (s *RunStatus) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatusSnapshot{
		RunID:         s.runID,
		Direction:     s.direction,
		State:         s.state,
		Started:       s.started,
		Finished:      s.finished,
		CurrentToken:  s.currentToken,
		TokensDone:    s.tokensDone,
		TokensSkipped: s.tokensSkipped,
		Processed:     s.processed,
		Moved:         s.moved,
		Failed:        s.failed,
		CatalogErrors: s.catalogErrors,
	}
	if !s.started.IsZero() {
		end := s.finished
		if end.IsZero() {
			end = s.now()
		}
		snap.Elapsed = end.Sub(s.started).Round(time.Second).String()
	}
	return snap
}

func (s *RunStatus) runStarted(runID, direction string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runID = runID
	s.direction = direction
	s.state = StateRunning
	s.started = s.now()
	s.finished = time.Time{}
	s.currentToken = ""
	s.tokensDone, s.tokensSkipped = 0, 0
	s.processed, s.moved, s.failed, s.catalogErrors = 0, 0, 0, 0
}

func (s *RunStatus) runDone() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateFinished
	s.finished = s.now()
	s.currentToken = ""
}

func (s *RunStatus) tokenStarted(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentToken = token
}

func (s *RunStatus) tokenDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokensDone++
	s.currentToken = ""
}

func (s *RunStatus) tokenSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokensSkipped++
}

func (s *RunStatus) file(moved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processed++
	if moved {
		s.moved++
	} else {
		s.failed++
	}
}

func (s *RunStatus) catalogError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogErrors++
}
