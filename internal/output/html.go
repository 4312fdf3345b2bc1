package output

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"sync"
	"time"

	"entrascan/internal/ruleeval"
)

//go:embed dashboard.html.tmpl
var dashboardTmpl string

// htmlSink collects findings for the run and renders a standalone
// HTML report on Close.
type htmlSink struct {
	mu       sync.Mutex
	out      io.WriteCloser
	provider string
	findings []ruleeval.Finding
}

func newHTMLSink(out io.WriteCloser) *htmlSink {
	return &htmlSink{out: out}
}

type dashboardData struct {
	Provider    string
	GeneratedAt string
	Findings    []ruleeval.Finding
	Passed      int
	Failed      int
	Total       int
	BySeverity  map[string]int
}

func (s *htmlSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case Event:
		if t.Type == "run.started" {
			s.provider = t.Provider
		}
	case ruleeval.Finding:
		s.findings = append(s.findings, t)
	}
	return nil
}

func (s *htmlSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := dashboardData{
		Provider:    s.provider,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Findings:    s.findings,
		BySeverity:  map[string]int{},
	}
	for _, f := range s.findings {
		data.Total++
		if f.Status == ruleeval.StatusPass {
			data.Passed++
		} else {
			data.Failed++
			data.BySeverity[f.Severity]++
		}
	}

	tmpl, err := template.New("dashboard").Parse(dashboardTmpl)
	if err != nil {
		return fmt.Errorf("parse dashboard template: %w", err)
	}
	renderErr := tmpl.Execute(s.out, data)
	if closeErr := s.out.Close(); closeErr != nil && renderErr == nil {
		renderErr = closeErr
	}
	if renderErr != nil {
		return fmt.Errorf("render dashboard: %w", renderErr)
	}
	return nil
}
