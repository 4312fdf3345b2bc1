package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"entrascan/internal/ruleeval"
)

type ConsoleSink struct {
	writer          io.Writer
	format          string // "text", "json", "ndjson"
	mu              sync.Mutex
	findings        []ruleeval.Finding // for JSON array output
	allowedStatuses map[string]bool
}

func NewConsoleSink(w io.Writer, format string, filterStatuses []string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}

	s := &ConsoleSink{
		writer: w,
		format: format,
	}

	if len(filterStatuses) > 0 {
		s.allowedStatuses = make(map[string]bool)
		for _, st := range filterStatuses {
			s.allowedStatuses[strings.ToLower(st)] = true
		}
	}

	return s
}

var (
	passLabel = color.New(color.FgGreen).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
)

func statusLabel(status string) string {
	switch status {
	case ruleeval.StatusPass:
		return passLabel("PASS")
	case ruleeval.StatusFail:
		return failLabel("FAIL")
	default:
		return strings.ToUpper(status)
	}
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	if len(s.allowedStatuses) > 0 {
		if f, ok := v.(ruleeval.Finding); ok {
			if !s.allowedStatuses[strings.ToLower(f.Status)] {
				return nil
			}
		}
	}

	switch s.format {
	case "json":
		f, ok := v.(ruleeval.Finding)
		if !ok {
			// Ignore lifecycle events in JSON aggregate mode.
			return nil
		}
		s.findings = append(s.findings, f)
		return nil
	case "ndjson":
		encoder := json.NewEncoder(s.writer)
		switch t := v.(type) {
		case Event:
			if err := encoder.Encode(t); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		case ruleeval.Finding:
			if err := encoder.Encode(eventFromFinding(t)); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		default:
			return nil
		}
	case "text":
		f, ok := v.(ruleeval.Finding)
		if !ok {
			// Ignore events in text mode.
			return nil
		}
		if _, err := fmt.Fprintf(s.writer, "[%s] %s %s (%s)", statusLabel(f.Status), f.ID, f.Title, f.Severity); err != nil {
			return err
		}
		if f.Reason != "" {
			if _, err := fmt.Fprintf(s.writer, " - %s", f.Reason); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(s.writer); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(s.findings); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	}
	if s.format != "text" && s.format != "ndjson" {
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
	return nil
}
