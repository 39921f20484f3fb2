package domain

import (
	"net/http"
	"time"
)

// OutcomeKind enumerates the closed set of states a download can be in.
type OutcomeKind int

const (
	OutcomeNotStarted OutcomeKind = iota
	OutcomeSkipped
	OutcomeFail
	OutcomeSuccess
)

// SkipReasonComplete is recorded when the file on disk already holds the
// complete resource.
const SkipReasonComplete = "already fully downloaded"

// Outcome is the terminal (or pending) state of one download. NotStarted is
// the only non-terminal case and never appears in a finished batch.
type Outcome struct {
	kind   OutcomeKind
	reason string
}

// NotStarted returns the initial, non-terminal outcome.
func NotStarted() Outcome { return Outcome{kind: OutcomeNotStarted} }

// Skipped returns a terminal outcome for a download that required no transfer.
func Skipped(reason string) Outcome { return Outcome{kind: OutcomeSkipped, reason: reason} }

// Fail returns a terminal outcome carrying a human-readable failure cause.
func Fail(reason string) Outcome { return Outcome{kind: OutcomeFail, reason: reason} }

// Success returns the terminal outcome of a completed transfer.
func Success() Outcome { return Outcome{kind: OutcomeSuccess} }

// Kind returns the outcome case.
func (o Outcome) Kind() OutcomeKind { return o.kind }

// Reason returns the skip or failure reason, empty for other cases.
func (o Outcome) Reason() string { return o.reason }

// Terminal reports whether no further state transition will occur.
func (o Outcome) Terminal() bool { return o.kind != OutcomeNotStarted }

func (o Outcome) String() string {
	switch o.kind {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFail:
		return "fail"
	case OutcomeSuccess:
		return "success"
	default:
		return "not_started"
	}
}

// RangeCapability reports whether a server honors partial-range requests for a
// resource and the resource's total size when known. It is produced by a probe
// per attempt and never cached.
type RangeCapability struct {
	Resumable bool
	// Size is nil when the server did not report a parsable Content-Length.
	Size *int64
}

// Summary tracks one download from scheduling through its terminal outcome.
// It is owned by a single worker goroutine while mutable and must not be
// shared until the outcome is terminal.
type Summary struct {
	Download   Download
	StatusCode int
	Bytes      int64
	Outcome    Outcome
	Resumed    bool
}

// NewSummary creates the initial summary for a scheduled download. The status
// code starts at the bad-request sentinel until a response is actually
// observed.
func NewSummary(d Download) *Summary {
	return &Summary{
		Download:   d,
		StatusCode: http.StatusBadRequest,
		Outcome:    NotStarted(),
	}
}

// Skip marks the download as skipped.
func (s *Summary) Skip(reason string) { s.Outcome = Skipped(reason) }

// Fail marks the download as failed, keeping whatever partial state (status
// code, byte count) was recorded before the failure.
func (s *Summary) Fail(reason string) { s.Outcome = Fail(reason) }

// Succeed marks the download as successfully completed.
func (s *Summary) Succeed() { s.Outcome = Success() }

// Terminal reports whether the summary reached its final state.
func (s *Summary) Terminal() bool { return s.Outcome.Terminal() }

// SummaryRecord is a persisted row of a batch outcome.
type SummaryRecord struct {
	ID         int64
	URL        string
	Filename   string
	StatusCode int
	Bytes      int64
	Outcome    string
	Reason     string
	Resumed    bool
	CreatedAt  time.Time
}
