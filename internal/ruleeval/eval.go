package ruleeval

import (
	"fmt"

	"entrascan/internal/rulepack"
)

// Status values a finding can carry. Evaluation errors collapse into
// StatusFail; there is no separate error status.
const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// Finding is the evaluation result for one rule. Field names match the
// export wire shape consumed by the renderers.
type Finding struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Severity     string   `json:"severity"`
	Status       string   `json:"status"`
	Reason       string   `json:"reason"`
	SourceModule string   `json:"sourceModule"`
	Path         string   `json:"path"`
	Actual       any      `json:"actual"`
	Tags         []string `json:"tags"`
	Remediation  string   `json:"remediation"`
	Description  string   `json:"description"`
	Level        int      `json:"level"`
}

// Counts aggregates pass/fail totals for a report.
// Total == Passed + Failed == len(Findings), always.
type Counts struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Report is the result of evaluating one rule pack against one payload
// root. Findings appear in pack declaration order.
type Report struct {
	Findings []Finding `json:"findings"`
	Counts   Counts    `json:"counts"`
}

// Evaluate runs every rule in the pack against the merged module
// payloads. It is a pure function of its inputs: it never mutates root,
// performs no I/O, and always evaluates every rule exactly once. A
// malformed rule or payload produces a fail finding with an explanatory
// reason, never an early return, so one rule's failure cannot suppress
// any other rule.
func Evaluate(root PayloadRoot, pack *rulepack.Pack) Report {
	report := Report{Findings: make([]Finding, 0, len(pack.Rules))}

	for _, r := range pack.Rules {
		f := evaluateRule(root, r)
		report.Findings = append(report.Findings, f)
		if f.Status == StatusPass {
			report.Counts.Passed++
		} else {
			report.Counts.Failed++
		}
	}
	report.Counts.Total = len(pack.Rules)
	return report
}

func evaluateRule(root PayloadRoot, r rulepack.Rule) Finding {
	// Subject selection: module+path resolves inside the module payload,
	// module alone takes the payload verbatim, neither takes the whole
	// root (all/ratio_gte resolve their own paths against the root
	// regardless).
	var subject any
	switch {
	case r.Source.Module != "" && r.Source.Path != "":
		subject = Resolve(root[r.Source.Module], r.Source.Path)
	case r.Source.Module != "":
		subject = root[r.Source.Module]
	default:
		subject = root
	}

	status, reason := StatusPass, r.PassMessage
	var actual, meta any

	passed, m, err := runTest(root, subject, r.Test)
	meta = m
	switch {
	case err != nil:
		status, reason = StatusFail, err.Error()
	case passed:
		status, reason = StatusPass, r.PassMessage
		if r.Test.Op == "equals" || r.Test.Op == "lte" || r.Test.Op == "gte" {
			actual = subject
		}
	default:
		status, reason = StatusFail, r.FailMessage
		if r.Test.Op == "equals" || r.Test.Op == "lte" || r.Test.Op == "gte" {
			actual = subject
		}
	}

	return Finding{
		ID:           r.ID,
		Title:        r.Title,
		Severity:     severityOrDefault(r.Severity),
		Status:       status,
		Reason:       reason,
		SourceModule: orDash(r.Source.Module),
		Path:         orDash(r.Source.Path),
		Actual:       actualEcho(actual, meta),
		Tags:         tagsOrEmpty(r.Tags),
		Remediation:  r.Remediation,
		Description:  r.Description,
		Level:        r.Level,
	}
}

// runTest dispatches to the operator library. It returns a non-nil
// error only for an unknown operator or a rule so malformed the
// operator machinery panicked; the caller converts both into a fail
// finding, never a crash.
func runTest(root PayloadRoot, subject any, t rulepack.Test) (passed bool, meta any, err error) {
	defer func() {
		if r := recover(); r != nil {
			passed = false
			err = fmt.Errorf("Rule error: %v", r)
		}
	}()

	switch t.Op {
	case "equals", "lte", "gte":
		ok, m := dispatchSimple(t.Op, subject, t.Value)
		return ok, m, nil
	case "all":
		ok, m := opAll(root, t.Checks)
		return ok, m, nil
	case "ratio_gte":
		threshold := 1.0
		if t.Value != nil {
			f, ok := AsNumber(t.Value)
			if !ok {
				return false, nil, fmt.Errorf("Rule error: ratio_gte threshold %v is not numeric", t.Value)
			}
			threshold = f
		}
		ok, m := opRatioGTE(root, t.NumeratorPath, t.DenominatorPath, threshold)
		return ok, m, nil
	case "count_where":
		ok, m := opCountWhere(subject, t.Filter, t.Compare)
		return ok, m, nil
	case "none_match":
		ok, m := opNoneMatch(subject, t.Filter)
		return ok, m, nil
	default:
		return false, nil, fmt.Errorf("Unknown op '%s'", t.Op)
	}
}

// actualEcho echoes scalar subjects verbatim; anything structured (or
// absent) is replaced by the operator diagnostic so the finding always
// carries something renderable.
func actualEcho(actual, meta any) any {
	switch actual.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint64, float32, float64:
		return actual
	}
	if meta != nil {
		return meta
	}
	return map[string]any{}
}

func severityOrDefault(s string) string {
	if s == "" {
		return "low"
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
