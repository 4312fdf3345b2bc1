package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"entrascan/internal/ruleeval"
)

func init() {
	color.NoColor = true
}

func sampleFindings() []ruleeval.Finding {
	return []ruleeval.Finding{
		{
			ID: "CIS-ENTRA-2.1", Title: "MFA coverage", Severity: "high",
			Status: ruleeval.StatusFail, Reason: "MFA coverage below 80%",
			SourceModule: "user_assessment", Tags: []string{"mfa"}, Level: 2,
		},
		{
			ID: "CIS-ENTRA-2.2", Title: "Few Global Admins", Severity: "critical",
			Status: ruleeval.StatusPass, Reason: "Two or fewer Global Administrators are assigned",
			SourceModule: "privileged_roles", Level: 2,
		},
	}
}

func TestConsoleSinkText(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSink(&buf, "text", nil)
	for _, f := range sampleFindings() {
		if err := s.Write(f); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := s.Write(Event{Type: "run.finished"}); err != nil {
		t.Fatalf("Write event: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "[FAIL] CIS-ENTRA-2.1 MFA coverage (high) - MFA coverage below 80%") {
		t.Errorf("text output missing fail line:\n%s", out)
	}
	if !strings.Contains(out, "[PASS] CIS-ENTRA-2.2") {
		t.Errorf("text output missing pass line:\n%s", out)
	}
	if strings.Contains(out, "run.finished") {
		t.Error("lifecycle events must not leak into text output")
	}
}

func TestConsoleSinkStatusFilter(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSink(&buf, "text", []string{"FAIL"})
	for _, f := range sampleFindings() {
		if err := s.Write(f); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if strings.Contains(buf.String(), "CIS-ENTRA-2.2") {
		t.Errorf("pass finding should be filtered out:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "CIS-ENTRA-2.1") {
		t.Errorf("fail finding missing:\n%s", buf.String())
	}
}

func TestConsoleSinkJSONAggregatesOnClose(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSink(&buf, "json", nil)
	for _, f := range sampleFindings() {
		if err := s.Write(f); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if buf.Len() != 0 {
		t.Error("json mode must not write before Close")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	var got []ruleeval.Finding
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(got) != 2 || got[0].ID != "CIS-ENTRA-2.1" {
		t.Errorf("got = %+v", got)
	}
}

func TestConsoleSinkNDJSONStreams(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSink(&buf, "ndjson", nil)
	if err := s.Write(Event{Type: "run.started", Provider: "entra", Modules: 7}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write(sampleFindings()[0]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write(Event{Type: "run.finished", ExitCode: 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), buf.String())
	}
	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if first["type"] != "run.started" || first["provider"] != "entra" {
		t.Errorf("first line = %v", first)
	}
	if second["type"] != "finding" || second["id"] != "CIS-ENTRA-2.1" {
		t.Errorf("second line = %v", second)
	}
}

func TestFileSinkInfersFormat(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "report.json")
	s, err := NewFileSink(path, "")
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	for _, f := range sampleFindings() {
		if err := s.Write(f); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got []ruleeval.Finding
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("file is not a JSON array: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d findings", len(got))
	}

	if _, err := NewFileSink(filepath.Join(dir, "report.xyz"), ""); err == nil {
		t.Error("unknown extension should fail")
	}
}

func TestCSVSink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	s, err := NewFileSink(path, "csv")
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	for _, f := range sampleFindings() {
		if err := s.Write(f); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := s.Write(Event{Type: "run.finished"}); err != nil {
		t.Fatalf("Write event: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header plus 2", len(rows))
	}
	if rows[0][0] != "id" || rows[1][0] != "CIS-ENTRA-2.1" || rows[1][3] != "fail" {
		t.Errorf("rows = %v", rows)
	}
	if rows[1][7] != "mfa" {
		t.Errorf("tags cell = %q", rows[1][7])
	}
}

func TestHTMLSink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.html")
	s, err := NewFileSink(path, "")
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	if err := s.Write(Event{Type: "run.started", Provider: "entra"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for _, f := range sampleFindings() {
		if err := s.Write(f); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	html := string(data)
	for _, want := range []string{"for entra", "CIS-ENTRA-2.1", "MFA coverage below 80%", "status-fail"} {
		if !strings.Contains(html, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestEmitSinkNDJSON(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewEmitSink(&buf, "ndjson")
	if err != nil {
		t.Fatalf("NewEmitSink: %v", err)
	}
	if err := s.Write(sampleFindings()[1]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatal(err)
	}
	if line["type"] != "finding" || line["module"] != "privileged_roles" {
		t.Errorf("line = %v", line)
	}
}

func TestRenderFindingsTable(t *testing.T) {
	var buf bytes.Buffer
	RenderFindingsTable(&buf, sampleFindings())
	out := buf.String()
	if !strings.Contains(out, "CIS-ENTRA-2.1") || !strings.Contains(out, "user_assessment") {
		t.Errorf("table output:\n%s", out)
	}
}

func TestRenderSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	RenderSummaryTable(&buf, "User Assessment", map[string]any{
		"Total Users": 100, "MFA Enrolled": float64(40),
	})
	out := buf.String()
	if !strings.Contains(out, "Total Users") || !strings.Contains(out, "40") {
		t.Errorf("summary table:\n%s", out)
	}
}

func TestStringifyCell(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{true, "true"},
		{7, "7"},
		{float64(7), "7"},
		{7.25, "7.25"},
	}
	for _, c := range cases {
		if got := stringifyCell(c.in); got != c.want {
			t.Errorf("stringifyCell(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
