package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"entrascan/internal/ruleeval"
)

// csvSink writes findings as CSV rows, one header row then one row
// per finding. Lifecycle events are ignored.
type csvSink struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
	header bool
}

func newCSVSink(w io.WriteCloser) *csvSink {
	return &csvSink{w: csv.NewWriter(w), closer: w}
}

var csvHeader = []string{
	"id", "title", "severity", "status", "reason", "module", "path", "tags", "level",
}

func (s *csvSink) Write(v any) error {
	f, ok := v.(ruleeval.Finding)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.header {
		if err := s.w.Write(csvHeader); err != nil {
			return err
		}
		s.header = true
	}
	row := []string{
		f.ID,
		f.Title,
		f.Severity,
		f.Status,
		f.Reason,
		f.SourceModule,
		f.Path,
		strings.Join(f.Tags, ";"),
		strconv.Itoa(f.Level),
	}
	return s.w.Write(row)
}

func (s *csvSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	err := s.w.Error()
	if closeErr := s.closer.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
