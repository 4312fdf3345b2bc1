package rulepack

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmbeddedPacks(t *testing.T) {
	for _, level := range []int{1, 2} {
		pack, err := Load("entra", level)
		if err != nil {
			t.Fatalf("Load(entra, %d): %v", level, err)
		}
		if pack.Provider != "entra" {
			t.Errorf("provider = %q, want entra", pack.Provider)
		}
		if pack.Level != level {
			t.Errorf("level = %d, want %d", pack.Level, level)
		}
		if len(pack.Rules) == 0 {
			t.Errorf("level %d pack has no rules", level)
		}
	}
}

func TestLoadIsCaseInsensitiveOnProvider(t *testing.T) {
	pack, err := Load("Entra", 1)
	if err != nil {
		t.Fatalf("Load(Entra, 1): %v", err)
	}
	if pack.Provider != "entra" {
		t.Errorf("provider = %q, want entra", pack.Provider)
	}
}

func TestLoadUnknownPack(t *testing.T) {
	for _, tc := range []struct {
		provider string
		level    int
	}{
		{"entra", 9},
		{"doesnotexist", 1},
	} {
		_, err := Load(tc.provider, tc.level)
		if !errors.Is(err, ErrPackNotFound) {
			t.Errorf("Load(%s, %d) err = %v, want ErrPackNotFound", tc.provider, tc.level, err)
		}
	}
}

func TestEmbeddedRuleIDsAreUnique(t *testing.T) {
	for _, level := range []int{1, 2} {
		pack, err := Load("entra", level)
		if err != nil {
			t.Fatalf("Load(entra, %d): %v", level, err)
		}
		seen := map[string]bool{}
		for _, r := range pack.Rules {
			if r.ID == "" {
				t.Errorf("level %d: rule with empty id", level)
			}
			if seen[r.ID] {
				t.Errorf("level %d: duplicate rule id %s", level, r.ID)
			}
			seen[r.ID] = true
		}
	}
}

func TestEmbeddedRulesUseKnownOps(t *testing.T) {
	known := map[string]bool{
		"equals":      true,
		"lte":         true,
		"gte":         true,
		"all":         true,
		"ratio_gte":   true,
		"count_where": true,
		"none_match":  true,
	}
	for _, level := range []int{1, 2} {
		pack, err := Load("entra", level)
		if err != nil {
			t.Fatalf("Load(entra, %d): %v", level, err)
		}
		for _, r := range pack.Rules {
			if !known[r.Test.Op] {
				t.Errorf("rule %s uses unknown op %q", r.ID, r.Test.Op)
			}
			if r.Test.Op == "all" {
				for _, c := range r.Test.Checks {
					if !known[c.Op] {
						t.Errorf("rule %s sub-check uses unknown op %q", r.ID, c.Op)
					}
				}
			}
		}
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "entra"), 0o755); err != nil {
		t.Fatal(err)
	}
	doc := `{"rules": [{"id": "X-1", "test": {"op": "equals", "value": 3}}]}`
	if err := os.WriteFile(filepath.Join(dir, "entra", "level1.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	pack, err := LoadDir(dir, "entra", 1)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(pack.Rules) != 1 || pack.Rules[0].ID != "X-1" {
		t.Errorf("unexpected rules: %+v", pack.Rules)
	}

	if _, err := LoadDir(dir, "entra", 2); !errors.Is(err, ErrPackNotFound) {
		t.Errorf("missing level err = %v, want ErrPackNotFound", err)
	}
	if _, err := LoadDir(dir, "aws", 1); !errors.Is(err, ErrPackNotFound) {
		t.Errorf("missing provider err = %v, want ErrPackNotFound", err)
	}
}

func TestLoadDirRejectsInvalidDocuments(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "entra"), 0o755); err != nil {
		t.Fatal(err)
	}
	for name, doc := range map[string]string{
		"missing rule id": `{"rules": [{"test": {"op": "equals"}}]}`,
		"missing test op": `{"rules": [{"id": "X-1", "test": {}}]}`,
		"not json":        `{"rules":`,
	} {
		if err := os.WriteFile(filepath.Join(dir, "entra", "level1.json"), []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadDir(dir, "entra", 1); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestEmptyDocumentIsEmptyPack(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "entra"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "entra", "level1.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	pack, err := LoadDir(dir, "entra", 1)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(pack.Rules) != 0 {
		t.Errorf("expected empty pack, got %d rules", len(pack.Rules))
	}
}

func TestProviders(t *testing.T) {
	providers := Providers()
	found := false
	for _, p := range providers {
		if p == "entra" {
			found = true
		}
	}
	if !found {
		t.Errorf("Providers() = %v, want to include entra", providers)
	}
}
