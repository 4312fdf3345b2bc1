// Package rulepack loads provider- and level-scoped rule packs: the
// versioned, human-authored documents the rule engine evaluates against
// collected module payloads. Packs for supported providers are embedded
// in the binary; a directory override lets operators ship their own.
package rulepack

// Source selects a rule's subject inside the merged payload root.
// Module names a payload; Path optionally resolves inside it. When both
// are empty the subject is the entire root.
type Source struct {
	Module string `json:"module"`
	Path   string `json:"path,omitempty"`
}

// SubCheck is one entry of an `all` test. Its Path resolves against the
// entire payload root, not the rule's own Source, which lets a single
// rule compose checks across modules.
type SubCheck struct {
	Path  string `json:"path"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// Compare is the count comparison of a count_where test.
// A nil Compare on the Test means {op: eq, value: 0}.
type Compare struct {
	Op    string  `json:"op"`
	Value float64 `json:"value"`
}

// Test declares which operator a rule runs and its operator-specific
// parameters. Exactly one op's field set is meaningful per rule; the
// others stay at their zero values.
type Test struct {
	Op              string     `json:"op"`
	Value           any        `json:"value,omitempty"`
	Checks          []SubCheck `json:"checks,omitempty"`
	NumeratorPath   string     `json:"numerator_path,omitempty"`
	DenominatorPath string     `json:"denominator_path,omitempty"`
	Filter          string     `json:"filter,omitempty"`
	Compare         *Compare   `json:"compare,omitempty"`
}

// Rule is one entry in a rule pack. IDs are expected to be unique
// within a pack but this is not enforced.
type Rule struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Severity    string   `json:"severity"`
	Source      Source   `json:"source"`
	Test        Test     `json:"test"`
	PassMessage string   `json:"pass_message,omitempty"`
	FailMessage string   `json:"fail_message,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Remediation string   `json:"remediation,omitempty"`
	Description string   `json:"description,omitempty"`
	Level       int      `json:"level,omitempty"`
}

// Pack is the parsed rule document for one (provider, level) pair.
type Pack struct {
	Provider string `json:"-"`
	Level    int    `json:"-"`
	Rules    []Rule `json:"rules"`
}
