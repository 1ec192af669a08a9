package chat

import (
	"errors"
	"testing"
)

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	t.Run("duplicate name rejected", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		spec := ToolSpec{Name: "ping"}
		if err := r.Register(spec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := r.Register(spec); !errors.Is(err, ErrDuplicateTool) {
			t.Fatalf("want ErrDuplicateTool, got %v", err)
		}
	})

	t.Run("get unknown tool", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		if _, err := r.Get("teleport"); !errors.Is(err, ErrUnknownTool) {
			t.Fatalf("want ErrUnknownTool, got %v", err)
		}
		if r.Has("teleport") {
			t.Fatal("Has must be false for an unregistered tool")
		}
	})

	t.Run("describe preserves registration order", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		for _, name := range []string{"zeta", "alpha", "mid"} {
			if err := r.Register(ToolSpec{Name: name}); err != nil {
				t.Fatalf("register %q: %v", name, err)
			}
		}
		specs := r.DescribeAll()
		want := []string{"zeta", "alpha", "mid"}
		for i, spec := range specs {
			if spec.Name != want[i] {
				t.Fatalf("position %d: want %q, got %q", i, want[i], spec.Name)
			}
		}
	})
}

func TestDefaultRegistryCatalog(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	defs := r.Catalog()
	if len(defs) != 5 {
		t.Fatalf("want 5 tool definitions, got %d", len(defs))
	}
	if defs[0].Name != ToolCreateEvent {
		t.Fatalf("want %q first, got %q", ToolCreateEvent, defs[0].Name)
	}

	byName := make(map[string]map[string]any, len(defs))
	for _, d := range defs {
		byName[d.Name] = d.Parameters
	}

	create := byName[ToolCreateEvent]
	required, ok := create["required"].([]string)
	if !ok {
		t.Fatalf("create_event parameters missing required list: %#v", create)
	}
	want := []string{"end_time", "start_time", "title"}
	if len(required) != len(want) {
		t.Fatalf("want required %v, got %v", want, required)
	}
	for i := range want {
		if required[i] != want[i] {
			t.Fatalf("want required %v, got %v", want, required)
		}
	}

	// list_events has no mandatory arguments, so no required key at all.
	if _, ok := byName[ToolListEvents]["required"]; ok {
		t.Fatal("list_events must not declare required arguments")
	}
}
