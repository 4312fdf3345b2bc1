package modules

import (
	"context"
	"errors"
	"testing"
)

type stubAPI struct{}

func (stubAPI) Get(context.Context, string) (map[string]any, error)      { return nil, nil }
func (stubAPI) GetAll(context.Context, string) ([]map[string]any, error) { return nil, nil }

type stubModule struct {
	id  string
	run func(ctx context.Context, api GraphAPI) (map[string]any, error)
}

func (m *stubModule) ID() string          { return m.id }
func (m *stubModule) Title() string       { return m.id }
func (m *stubModule) Description() string { return "" }
func (m *stubModule) Provider() string    { return "entra" }
func (m *stubModule) Run(ctx context.Context, api GraphAPI) (map[string]any, error) {
	return m.run(ctx, api)
}

func TestRunnerAssemblesRoot(t *testing.T) {
	mods := []Module{
		&stubModule{id: "alpha", run: func(context.Context, GraphAPI) (map[string]any, error) {
			return map[string]any{"summary": map[string]any{"N": 1}}, nil
		}},
		&stubModule{id: "beta", run: func(context.Context, GraphAPI) (map[string]any, error) {
			return map[string]any{"summary": map[string]any{"N": 2}}, nil
		}},
	}
	root, results, err := NewRunner(stubAPI{}, 2, nil).Run(context.Background(), mods)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(root) != 2 {
		t.Fatalf("root = %v", root)
	}
	alpha, _ := root["alpha"].(map[string]any)
	if alpha == nil || alpha["summary"].(map[string]any)["N"] != 1 {
		t.Errorf("alpha payload = %v", root["alpha"])
	}
	if len(results) != 2 || results[0].Module.ID() != "alpha" || results[1].Module.ID() != "beta" {
		t.Errorf("results out of order: %v", results)
	}
}

func TestRunnerIsolatesModuleFailure(t *testing.T) {
	mods := []Module{
		&stubModule{id: "broken", run: func(context.Context, GraphAPI) (map[string]any, error) {
			return nil, errors.New("boom")
		}},
		&stubModule{id: "fine", run: func(context.Context, GraphAPI) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		}},
	}
	root, results, err := NewRunner(stubAPI{}, 1, nil).Run(context.Background(), mods)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	slot, _ := root["broken"].(map[string]any)
	if slot == nil || slot["error"] != "boom" {
		t.Errorf("broken slot = %v", root["broken"])
	}
	if _, ok := root["fine"]; !ok {
		t.Error("healthy module missing from root")
	}
	if results[0].Err == nil {
		t.Error("results[0].Err = nil, want boom")
	}
}

func TestRunnerContainsPanic(t *testing.T) {
	mods := []Module{
		&stubModule{id: "panicky", run: func(context.Context, GraphAPI) (map[string]any, error) {
			panic("unexpected shape")
		}},
	}
	root, _, err := NewRunner(stubAPI{}, 1, nil).Run(context.Background(), mods)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	slot, _ := root["panicky"].(map[string]any)
	if slot == nil || slot["error"] != "module panic: unexpected shape" {
		t.Errorf("panicky slot = %v", root["panicky"])
	}
}

func TestRunnerSkipList(t *testing.T) {
	ran := false
	mods := []Module{
		&stubModule{id: "skipme", run: func(context.Context, GraphAPI) (map[string]any, error) {
			ran = true
			return map[string]any{}, nil
		}},
	}
	root, results, err := NewRunner(stubAPI{}, 1, []string{"skipme"}).Run(context.Background(), mods)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ran {
		t.Error("skipped module was run")
	}
	if _, ok := root["skipme"]; ok {
		t.Error("skipped module present in root")
	}
	if !results[0].Skipped() {
		t.Error("result not marked skipped")
	}
}

func TestRegistryResolve(t *testing.T) {
	Register(&stubModule{id: "reg_a", run: nil})
	Register(&stubModule{id: "reg_b", run: nil})

	mods, err := Resolve("entra", "reg_b, reg_a")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(mods) != 2 || mods[0].ID() != "reg_b" {
		t.Errorf("mods = %v", mods)
	}

	if _, err := Resolve("entra", "missing"); err == nil {
		t.Error("expected error for unknown module")
	}
	if _, err := Resolve("aws", "reg_a"); err == nil {
		t.Error("expected provider mismatch error")
	}

	all := List("entra")
	for i := 1; i < len(all); i++ {
		if all[i-1].ID() >= all[i].ID() {
			t.Errorf("List not sorted: %s before %s", all[i-1].ID(), all[i].ID())
		}
	}
}
