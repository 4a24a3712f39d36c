package engine

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	hbwasm "github.com/glyphlab/hbwasm"
)

// Token identifies a registered Go callback. Tokens are passed into the guest
// as the user_data pointer of the matching C trampoline and come back on the
// hbw host imports as the first argument.
type Token uint32

// CallbackFunc is a Go callback invoked from guest code. args carries the raw
// trampoline arguments after the token. The return value is ignored for slots
// without a result.
type CallbackFunc func(ctx context.Context, mem hbwasm.Memory, args []uint64) uint64

// CallbackTable maps tokens to Go callbacks. One table serves a single
// instance; tokens from different instances are not interchangeable.
type CallbackTable struct {
	entries  []callbackEntry
	freeList []Token
	mu       sync.RWMutex
}

type callbackEntry struct {
	fn    CallbackFunc
	valid bool
}

// NewCallbackTable creates an empty callback table.
func NewCallbackTable() *CallbackTable {
	return &CallbackTable{
		entries:  make([]callbackEntry, 0, 32),
		freeList: make([]Token, 0, 8),
	}
}

// Register stores a callback and returns its token. Token 0 is never issued,
// so it can stand for "no callback" on the guest side.
func (t *CallbackTable) Register(fn CallbackFunc) Token {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := callbackEntry{fn: fn, valid: true}

	if len(t.freeList) > 0 {
		token := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		t.entries[token-1] = e
		return token
	}

	t.entries = append(t.entries, e)
	return Token(len(t.entries))
}

// Drop removes a callback. Dropping an unknown token is a no-op.
func (t *CallbackTable) Drop(token Token) {
	if token == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := int(token) - 1
	if idx >= len(t.entries) || !t.entries[idx].valid {
		return
	}
	t.entries[idx] = callbackEntry{}
	t.freeList = append(t.freeList, token)
}

// Len returns the number of registered callbacks.
func (t *CallbackTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, e := range t.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Lookup returns the callback registered under a token.
func (t *CallbackTable) Lookup(token Token) (CallbackFunc, bool) {
	if token == 0 {
		return nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := int(token) - 1
	if idx >= len(t.entries) || !t.entries[idx].valid {
		return nil, false
	}
	return t.entries[idx].fn, true
}

// dispatch runs the callback for a token. Unknown tokens return 0; a guest
// holding a stale token must not crash the host.
func (t *CallbackTable) dispatch(ctx context.Context, mem hbwasm.Memory, token Token, args []uint64) uint64 {
	fn, ok := t.Lookup(token)
	if !ok {
		Logger().Warn("callback dispatch for unknown token",
			zap.Uint32("token", uint32(token)))
		return 0
	}
	return fn(ctx, mem, args)
}

// hostModuleName is the import namespace the callback shim links against.
const hostModuleName = "hbw"

// trampolineSpec describes one hbw host import. params counts the i32
// arguments after the leading token.
type trampolineSpec struct {
	name      string
	params    int
	hasResult bool
}

// Import signatures mirror the shim's C trampolines one to one.
var trampolineSpecs = []trampolineSpec{
	{name: "reference_table", params: 2, hasResult: true},
	{name: "nominal_glyph", params: 3, hasResult: true},
	{name: "variation_glyph", params: 4, hasResult: true},
	{name: "glyph_h_advance", params: 2, hasResult: true},
	{name: "glyph_v_advance", params: 2, hasResult: true},
	{name: "glyph_h_origin", params: 4, hasResult: true},
	{name: "glyph_v_origin", params: 4, hasResult: true},
	{name: "glyph_h_kerning", params: 3, hasResult: true},
	{name: "glyph_extents", params: 3, hasResult: true},
	{name: "glyph_name", params: 4, hasResult: true},
	{name: "glyph_from_name", params: 4, hasResult: true},
	{name: "font_h_extents", params: 2, hasResult: true},
	{name: "font_v_extents", params: 2, hasResult: true},
	{name: "combining_class", params: 2, hasResult: true},
	{name: "general_category", params: 2, hasResult: true},
	{name: "mirroring", params: 2, hasResult: true},
	{name: "script", params: 2, hasResult: true},
	{name: "compose", params: 4, hasResult: true},
	{name: "decompose", params: 4, hasResult: true},
}

// instantiateHostModule builds and instantiates the hbw host module whose
// functions forward into the callback table.
func instantiateHostModule(ctx context.Context, rt wazero.Runtime, table *CallbackTable) (api.Module, error) {
	builder := rt.NewHostModuleBuilder(hostModuleName)

	// destroy is the guest-side destroy notify for any user_data token: it
	// retires the slot rather than dispatching through it.
	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			table.Drop(Token(uint32(stack[0])))
		}), []api.ValueType{api.ValueTypeI32}, nil).
		Export("destroy")

	for _, spec := range trampolineSpecs {
		paramTypes := make([]api.ValueType, spec.params+1)
		for i := range paramTypes {
			paramTypes[i] = api.ValueTypeI32
		}
		var resultTypes []api.ValueType
		if spec.hasResult {
			resultTypes = []api.ValueType{api.ValueTypeI32}
		}

		hasResult := spec.hasResult
		fn := api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			token := Token(uint32(stack[0]))
			result := table.dispatch(ctx, &WazeroMemory{mem: mod.Memory()}, token, stack[1:len(paramTypes)])
			if hasResult {
				stack[0] = result
			}
		})

		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(fn, paramTypes, resultTypes).
			Export(spec.name)
	}

	return builder.Instantiate(ctx)
}
