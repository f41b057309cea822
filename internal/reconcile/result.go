package reconcile

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/john-osullivan/vetspire-import/pkg/utils"
)

// Entity kinds recorded in results.
const (
	EntityClient       = "client"
	EntityPatient      = "patient"
	EntityImmunization = "immunization"
	EntityRecord       = "record"
)

// Actions recorded on failures.
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionValidate = "validate"
)

var timeNow = func() time.Time { return time.Now().UTC() }

// Entry is the outcome of one client, patient or immunization step.
type Entry struct {
	Entity string `json:"entity"`

	// Index is the position of the input record in the run (0-based).
	Index int `json:"index"`

	// Subject names the record for humans, e.g. "Doe, John".
	Subject string `json:"subject"`

	// Action is set on failures: the step that failed.
	Action string `json:"action,omitempty"`

	// MatchReason is how the existing remote record was found. Empty for
	// creates.
	MatchReason string `json:"matchReason,omitempty"`

	Input    any `json:"input,omitempty"`
	Record   any `json:"record,omitempty"`
	Previous any `json:"previous,omitempty"`

	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Counts totals the outcomes of a run.
type Counts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Sub returns c - o.
func (c Counts) Sub(o Counts) Counts {
	return Counts{
		Created: c.Created - o.Created,
		Updated: c.Updated - o.Updated,
		Skipped: c.Skipped - o.Skipped,
		Failed:  c.Failed - o.Failed,
	}
}

// Total is the number of recorded outcomes.
func (c Counts) Total() int {
	return c.Created + c.Updated + c.Skipped + c.Failed
}

// Result is the complete outcome of a reconciliation run.
type Result struct {
	RunID      string    `json:"runId"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Records    int       `json:"records"`
	Processed  int       `json:"processed"`
	Totals     Counts    `json:"totals"`

	// ByEntity splits Totals by Entry.Entity.
	ByEntity map[string]Counts `json:"byEntity"`

	Created    []Entry   `json:"created"`
	Updated    []Entry   `json:"updated"`
	Skipped    []Entry   `json:"skipped"`
	Failed     []Entry   `json:"failed"`

	// Artifacts lists the files written by Save.
	Artifacts []string `json:"-"`
}

// FailureReport is the failures-only projection of a Result.
type FailureReport struct {
	RunID     string    `json:"runId"`
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
	Failed    []Entry   `json:"failed"`
}

func newResult(runID, mode string, records int) *Result {
	return &Result{
		RunID:     runID,
		Mode:      mode,
		StartedAt: timeNow(),
		Records:   records,
		ByEntity:  make(map[string]Counts),
		Created:   []Entry{},
		Updated:   []Entry{},
		Skipped:   []Entry{},
		Failed:    []Entry{},
	}
}

func (r *Result) created(e Entry) {
	e.Timestamp = timeNow()
	r.Created = append(r.Created, e)
	r.count(e.Entity, func(c *Counts) { c.Created++ })
}

func (r *Result) updated(e Entry) {
	e.Timestamp = timeNow()
	r.Updated = append(r.Updated, e)
	r.count(e.Entity, func(c *Counts) { c.Updated++ })
}

func (r *Result) skipped(e Entry) {
	e.Timestamp = timeNow()
	r.Skipped = append(r.Skipped, e)
	r.count(e.Entity, func(c *Counts) { c.Skipped++ })
}

func (r *Result) failed(e Entry, err error) {
	e.Timestamp = timeNow()
	if err != nil {
		e.Error = err.Error()
	}
	r.Failed = append(r.Failed, e)
	r.count(e.Entity, func(c *Counts) { c.Failed++ })
}

// count applies bump to the totals and to the entity's counts.
func (r *Result) count(entity string, bump func(*Counts)) {
	bump(&r.Totals)
	if r.ByEntity == nil {
		r.ByEntity = make(map[string]Counts)
	}
	c := r.ByEntity[entity]
	bump(&c)
	r.ByEntity[entity] = c
}

// Failures returns the failures-only projection.
func (r *Result) Failures() FailureReport {
	return FailureReport{
		RunID:     r.RunID,
		Mode:      r.Mode,
		Timestamp: r.FinishedAt,
		Count:     len(r.Failed),
		Failed:    r.Failed,
	}
}

// ErrorLogEntries converts the failures for utils.WriteErrorLog and the
// processing summary.
func (r *Result) ErrorLogEntries() []utils.ErrorLogEntry {
	entries := make([]utils.ErrorLogEntry, 0, len(r.Failed))
	for _, f := range r.Failed {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    f.Timestamp,
			Subject:      fmt.Sprintf("%s %s (record %d)", f.Entity, f.Subject, f.Index+1),
			ErrorType:    f.Action,
			ErrorMessage: f.Error,
		})
	}
	return entries
}

// Stats returns the totals as summary statistics.
func (r *Result) Stats() []utils.Stat {
	return []utils.Stat{
		{Label: "Records", Value: r.Records},
		{Label: "Processed", Value: r.Processed},
		{Label: "Created", Value: r.Totals.Created},
		{Label: "Updated", Value: r.Totals.Updated},
		{Label: "Skipped", Value: r.Totals.Skipped},
		{Label: "Failed", Value: r.Totals.Failed},
	}
}

// Save writes <prefix>-results and <prefix>-failures artifacts to dir and
// returns their paths.
func (r *Result) Save(dir, prefix string) (string, string, error) {
	stamp := r.StartedAt
	resultsPath := filepath.Join(dir, utils.TimestampedName(prefix+"-results", r.Mode, ".json", stamp))
	failuresPath := filepath.Join(dir, utils.TimestampedName(prefix+"-failures", r.Mode, ".json", stamp))

	if err := utils.WriteJSON(resultsPath, r); err != nil {
		return "", "", err
	}
	if err := utils.WriteJSON(failuresPath, r.Failures()); err != nil {
		return resultsPath, "", err
	}
	r.Artifacts = []string{resultsPath, failuresPath}
	return resultsPath, failuresPath, nil
}

// Progress is reported every few records and after the last one.
type Progress struct {
	Processed int
	Total     int
	Counts    Counts
	Delta     Counts
}

// progressTracker emits Progress every n records and on the final record.
type progressTracker struct {
	every int
	last  Counts
}

func (p *progressTracker) due(processed, total int) bool {
	return processed == total || (p.every > 0 && processed%p.every == 0)
}

func (p *progressTracker) next(processed, total int, now Counts) Progress {
	pr := Progress{Processed: processed, Total: total, Counts: now, Delta: now.Sub(p.last)}
	p.last = now
	return pr
}
