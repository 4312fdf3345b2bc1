package rulepack

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

//go:embed packs/*/*.json
var packFS embed.FS

// ErrPackNotFound is returned when no rule pack exists for the requested
// provider/level pair. Unlike the engine's fail-closed operators this is
// a hard, caller-visible error: auditing against a pack that does not
// exist is an operator mistake, not a failing control.
var ErrPackNotFound = errors.New("rule pack not found")

// Load returns the embedded rule pack for a provider and compliance
// level. Provider matching is case-insensitive.
func Load(provider string, level int) (*Pack, error) {
	name := fmt.Sprintf("packs/%s/level%d.json", strings.ToLower(provider), level)
	data, err := packFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: provider %q level %d", ErrPackNotFound, provider, level)
	}
	return parsePack(data, provider, level)
}

// LoadDir reads a rule pack from an on-disk directory laid out as
// <dir>/<provider>/level<N>.json, for operators who maintain their own
// packs instead of the embedded ones.
func LoadDir(dir, provider string, level int) (*Pack, error) {
	path := filepath.Join(dir, strings.ToLower(provider), fmt.Sprintf("level%d.json", level))
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPackNotFound, path)
		}
		return nil, fmt.Errorf("read rule pack %s: %w", path, err)
	}
	return parsePack(data, provider, level)
}

func parsePack(data []byte, provider string, level int) (*Pack, error) {
	if err := validateDocument(data); err != nil {
		return nil, fmt.Errorf("rule pack for %s level %d: %w", provider, level, err)
	}
	var pack Pack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse rule pack for %s level %d: %w", provider, level, err)
	}
	// A document without a "rules" key is an empty pack, not an error.
	pack.Provider = strings.ToLower(provider)
	pack.Level = level
	return &pack, nil
}

// Providers lists the providers with at least one embedded pack.
func Providers() []string {
	entries, err := packFS.ReadDir("packs")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out
}
