package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"entrascan/internal/ruleeval"
)

type FileSink struct {
	path     string
	format   string
	file     *os.File
	mu       sync.Mutex
	findings []ruleeval.Finding
}

// NewFileSink writes findings to a file. With an empty format the
// extension decides: .json, .ndjson/.jsonl, .csv or .html.
func NewFileSink(path string, format string) (Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}

	if format == "" {
		ext := strings.ToLower(filepath.Ext(path))
		switch ext {
		case ".json":
			format = "json"
		case ".ndjson", ".jsonl":
			format = "ndjson"
		case ".csv":
			format = "csv"
		case ".html", ".htm":
			format = "html"
		default:
			return nil, fmt.Errorf("cannot infer output format from file extension %q", ext)
		}
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	switch format {
	case "json", "ndjson":
		return &FileSink{path: path, format: format, file: f}, nil
	case "csv":
		return newCSVSink(f), nil
	case "html":
		return newHTMLSink(f), nil
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

func (s *FileSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

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
		encoder := json.NewEncoder(s.file)
		switch t := v.(type) {
		case Event:
			return encoder.Encode(t)
		case ruleeval.Finding:
			return encoder.Encode(eventFromFinding(t))
		default:
			return nil
		}
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.format == "json" {
		encoder := json.NewEncoder(s.file)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(s.findings)
	}

	if closeErr := s.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
