package modules

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"entrascan/internal/ui"
)

// RunResult is the outcome of one module run.
type RunResult struct {
	Module  Module
	Payload map[string]any
	Err     error
}

// Runner executes a set of modules concurrently against one Graph
// client.
type Runner struct {
	api      GraphAPI
	parallel int
	skip     map[string]bool
}

// NewRunner builds a runner. parallel caps concurrent module runs; a
// value below 1 means unbounded.
func NewRunner(api GraphAPI, parallel int, skip []string) *Runner {
	skipSet := make(map[string]bool, len(skip))
	for _, id := range skip {
		skipSet[id] = true
	}
	return &Runner{api: api, parallel: parallel, skip: skipSet}
}

// Run executes the given modules and assembles their payloads into a
// single root keyed by module ID. A module failure is isolated: its
// slot carries {"error": message} so rules over that module fail
// closed while the rest of the audit proceeds. The returned results
// preserve the input module order. The error is non-nil only when the
// context was canceled.
func (r *Runner) Run(ctx context.Context, mods []Module) (map[string]any, []RunResult, error) {
	results := make([]RunResult, len(mods))

	g, gctx := errgroup.WithContext(ctx)
	if r.parallel > 0 {
		g.SetLimit(r.parallel)
	}

	var mu sync.Mutex
	root := make(map[string]any, len(mods))

	for i, m := range mods {
		if r.skip[m.ID()] {
			results[i] = RunResult{Module: m, Err: errSkipped}
			continue
		}
		i, m := i, m
		g.Go(func() error {
			ui.PrintMessage(ui.Info, "running %s", m.ID())
			payload, err := runModule(gctx, m, r.api)
			results[i] = RunResult{Module: m, Payload: payload, Err: err}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				ui.PrintMessage(ui.Error, "%s failed: %v", m.ID(), err)
				root[m.ID()] = map[string]any{"error": err.Error()}
				return nil
			}
			root[m.ID()] = payload
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return root, results, err
	}
	return root, results, ctx.Err()
}

var errSkipped = errors.New("skipped")

// Skipped reports whether a result was skipped rather than run.
func (r RunResult) Skipped() bool { return errors.Is(r.Err, errSkipped) }

// runModule contains a panicking module the same way the evaluator
// contains a panicking rule.
func runModule(ctx context.Context, m Module, api GraphAPI) (payload map[string]any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("module panic: %v", rec)
		}
	}()
	return m.Run(ctx, api)
}
