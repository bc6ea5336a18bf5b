package export

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line):
// - run.started
// - repo.record
// - run.summary
// - run.finished
//
// The aggregate formats only collect Record values.
type Event struct {
	Type     string   `json:"type"`
	Repo     string   `json:"repo,omitempty"`
	Record   *Record  `json:"record,omitempty"`
	Summary  *Summary `json:"summary,omitempty"`
	Source   string   `json:"source,omitempty"`
	Repos    int      `json:"repos,omitempty"`
	ExitCode int      `json:"exit_code,omitempty"`
}

const (
	EventRunStarted  = "run.started"
	EventRecord      = "repo.record"
	EventSummary     = "run.summary"
	EventRunFinished = "run.finished"
)

// asEvent maps any sink value onto its NDJSON line. ok is false for values
// that have no streaming form.
func asEvent(v any) (Event, bool) {
	switch t := v.(type) {
	case Event:
		return t, true
	case Record:
		return Event{Type: EventRecord, Repo: t.FullName, Record: &t}, true
	case Summary:
		return Event{Type: EventSummary, Summary: &t}, true
	default:
		return Event{}, false
	}
}
