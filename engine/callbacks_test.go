package engine

import (
	"context"
	"testing"

	hbwasm "github.com/glyphlab/hbwasm"
)

func TestCallbackTableRegisterDispatch(t *testing.T) {
	table := NewCallbackTable()

	var gotArgs []uint64
	token := table.Register(func(_ context.Context, _ hbwasm.Memory, args []uint64) uint64 {
		gotArgs = append(gotArgs[:0], args...)
		return 42
	})
	if token == 0 {
		t.Fatal("token 0 must never be issued")
	}

	result := table.dispatch(context.Background(), nil, token, []uint64{7, 9})
	if result != 42 {
		t.Errorf("dispatch result = %d", result)
	}
	if len(gotArgs) != 2 || gotArgs[0] != 7 || gotArgs[1] != 9 {
		t.Errorf("args = %v", gotArgs)
	}
}

func TestCallbackTableUnknownToken(t *testing.T) {
	table := NewCallbackTable()

	// A stale or zero token must be a silent no-op, not a crash.
	if got := table.dispatch(context.Background(), nil, 0, nil); got != 0 {
		t.Errorf("dispatch(0) = %d", got)
	}
	if got := table.dispatch(context.Background(), nil, 99, nil); got != 0 {
		t.Errorf("dispatch(99) = %d", got)
	}
}

func TestCallbackTableDropAndReuse(t *testing.T) {
	table := NewCallbackTable()

	noop := func(_ context.Context, _ hbwasm.Memory, _ []uint64) uint64 { return 0 }

	t1 := table.Register(noop)
	t2 := table.Register(noop)
	if t1 == t2 {
		t.Fatal("tokens must be distinct")
	}
	if table.Len() != 2 {
		t.Fatalf("Len = %d", table.Len())
	}

	table.Drop(t1)
	if table.Len() != 1 {
		t.Fatalf("Len after drop = %d", table.Len())
	}
	if _, ok := table.Lookup(t1); ok {
		t.Error("dropped token still resolves")
	}

	// Freed slots are recycled.
	t3 := table.Register(noop)
	if t3 != t1 {
		t.Errorf("expected recycled token %d, got %d", t1, t3)
	}

	// Double drop is a no-op.
	table.Drop(t1)
	table.Drop(t1)
}

func TestTrampolineSpecsMatchShim(t *testing.T) {
	seen := make(map[string]bool)
	for _, spec := range trampolineSpecs {
		if seen[spec.name] {
			t.Errorf("duplicate trampoline %q", spec.name)
		}
		seen[spec.name] = true
	}
	// Every font/unicode setter export needs a matching host import.
	for _, want := range []string{"nominal_glyph", "glyph_extents", "compose", "decompose", "reference_table"} {
		if !seen[want] {
			t.Errorf("missing trampoline %q", want)
		}
	}
}

func TestRequiredSymbols(t *testing.T) {
	syms := RequiredSymbols()

	seen := make(map[string]bool, len(syms))
	for _, s := range syms {
		if seen[s] {
			t.Errorf("duplicate symbol %q", s)
		}
		seen[s] = true
	}

	for _, want := range []string{"malloc", "free", "hb_shape", "hb_buffer_create",
		"hb_font_get_glyph_contour_point", "hbw_face_create_for_tables"} {
		if !seen[want] {
			t.Errorf("missing symbol %q", want)
		}
	}

	// Conversions done host-side and the shimmed blob constructor must not be
	// demanded of the module.
	for _, gone := range []string{"hb_blob_create", "hb_tag_from_string", "hb_tag_to_string",
		"hb_direction_from_string", "hb_direction_to_string",
		"hb_script_from_iso15924_tag", "hb_script_to_iso15924_tag",
		"hb_buffer_serialize_format_from_string", "hb_buffer_serialize_format_to_string"} {
		if seen[gone] {
			t.Errorf("symbol %q has no host consumer", gone)
		}
	}
}
