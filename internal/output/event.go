package output

import "entrascan/internal/ruleeval"

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line),
// including:
// - run.started
// - module.started
// - module.finished
// - finding
// - run.finished
//
// JSON mode remains an aggregate of ruleeval.Finding values.
type Event struct {
	Type     string `json:"type"`
	Provider string `json:"provider,omitempty"`
	Module   string `json:"module,omitempty"`
	*ruleeval.Finding
	Modules  int    `json:"modules,omitempty"`
	Rules    int    `json:"rules,omitempty"`
	Err      string `json:"error,omitempty"`
	ExitCode int    `json:"exit_code,omitempty"`
}

func eventFromFinding(f ruleeval.Finding) Event {
	return Event{Type: "finding", Module: f.SourceModule, Finding: &f}
}
