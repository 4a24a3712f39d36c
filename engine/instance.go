package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	hbwasm "github.com/glyphlab/hbwasm"
	hberrors "github.com/glyphlab/hbwasm/errors"
)

// Instantiate creates a running instance of the module. The module is built
// as a WASI reactor, so instantiation runs _initialize rather than _start.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	if err := m.engine.initWASI(ctx); err != nil {
		return nil, err
	}

	table := NewCallbackTable()
	host, err := instantiateHostModule(ctx, m.engine.runtime, table)
	if err != nil {
		return nil, hberrors.Load("instantiate host module", err)
	}

	modConfig := wazero.NewModuleConfig().
		WithName(""). // anonymous for parallel instantiation
		WithStartFunctions("_initialize")

	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		host.Close(ctx)
		return nil, hberrors.Load("instantiate module", err)
	}

	inst := &Instance{
		instance:  mod,
		host:      host,
		callbacks: table,
		funcCache: make(map[string]api.Function),
		stackBuf:  make([]uint64, 16),
	}

	if mem := mod.Memory(); mem != nil {
		inst.memory = &WazeroMemory{mem: mem}
	}

	if err := inst.resolveExports(); err != nil {
		inst.Close(ctx)
		return nil, err
	}

	return inst, nil
}

// Instance is a running HarfBuzz module. Calls are serialized internally, so
// an Instance may be shared between goroutines.
type Instance struct {
	instance  api.Module
	host      api.Module
	memory    *WazeroMemory
	callbacks *CallbackTable
	funcCache map[string]api.Function
	stackBuf  []uint64
	mu        sync.Mutex
	closed    bool
}

// resolveExports caches every required export, collecting all missing names so
// a bad module reports the full gap at once.
func (i *Instance) resolveExports() error {
	var missing []string
	for _, name := range RequiredSymbols() {
		fn := i.instance.ExportedFunction(name)
		if fn == nil {
			missing = append(missing, name)
			continue
		}
		i.funcCache[name] = fn
	}
	if len(missing) > 0 {
		return &hberrors.MissingExportsError{Names: missing}
	}
	return nil
}

// Call invokes an exported function with raw i32/i64 arguments and returns the
// first result, or 0 for void functions.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) (uint64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return 0, hberrors.Closed(name)
	}

	fn, ok := i.funcCache[name]
	if !ok {
		fn = i.instance.ExportedFunction(name)
		if fn == nil {
			return 0, hberrors.NotFound(hberrors.PhaseCall, "function", name)
		}
		i.funcCache[name] = fn
	}

	def := fn.Definition()
	n := len(args)
	if r := len(def.ResultTypes()); r > n {
		n = r
	}
	if n > len(i.stackBuf) {
		i.stackBuf = make([]uint64, n)
	}
	copy(i.stackBuf, args)

	if err := fn.CallWithStack(ctx, i.stackBuf[:n]); err != nil {
		return 0, hberrors.CallFailed(name, err)
	}

	if len(def.ResultTypes()) == 0 {
		return 0, nil
	}
	return i.stackBuf[0], nil
}

// Memory returns the instance's linear memory.
func (i *Instance) Memory() hbwasm.Memory {
	return i.memory
}

// Callbacks returns the instance's callback table.
func (i *Instance) Callbacks() *CallbackTable {
	return i.callbacks
}

// Alloc allocates on the guest heap via the module's own malloc, so the
// returned pointer is safe to hand to any hb_* function.
func (i *Instance) Alloc(ctx context.Context, size uint32) (uint32, error) {
	ptr, err := i.Call(ctx, "malloc", uint64(size))
	if err != nil {
		return 0, err
	}
	if ptr == 0 {
		return 0, hberrors.AllocationFailed(hberrors.PhaseCall, size)
	}
	return uint32(ptr), nil
}

// Free returns guest heap memory. Safe to call with 0.
func (i *Instance) Free(ctx context.Context, ptr uint32) {
	if ptr == 0 {
		return
	}
	if _, err := i.Call(ctx, "free", uint64(ptr)); err != nil {
		Logger().Warn("Free: guest free failed",
			zap.Uint32("ptr", ptr),
			zap.Error(err))
	}
}

func (i *Instance) Close(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true

	var firstErr error
	if i.instance != nil {
		if err := i.instance.Close(ctx); err != nil {
			firstErr = err
		}
		i.instance = nil
	}
	if i.host != nil {
		if err := i.host.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		i.host = nil
	}
	// Clear references to help GC
	i.funcCache = nil
	i.memory = nil
	i.stackBuf = nil
	return firstErr
}

// WazeroMemory wraps wazero memory to implement hbwasm.Memory
type WazeroMemory struct {
	mem api.Memory
}

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	ok := m.mem.Write(offset, data)
	if !ok {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *WazeroMemory) ReadU8(offset uint32) (uint8, error) {
	data, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (m *WazeroMemory) ReadU16(offset uint32) (uint16, error) {
	data, err := m.Read(offset, 2)
	if err != nil {
		return 0, err
	}
	return uint16(data[0]) | uint16(data[1])<<8, nil
}

func (m *WazeroMemory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds")
	}
	return val, nil
}

func (m *WazeroMemory) ReadU64(offset uint32) (uint64, error) {
	val, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds")
	}
	return val, nil
}

func (m *WazeroMemory) WriteU8(offset uint32, value uint8) error {
	return m.Write(offset, []byte{value})
}

func (m *WazeroMemory) WriteU16(offset uint32, value uint16) error {
	return m.Write(offset, []byte{byte(value), byte(value >> 8)})
}

func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	ok := m.mem.WriteUint32Le(offset, value)
	if !ok {
		return fmt.Errorf("write out of bounds")
	}
	return nil
}

func (m *WazeroMemory) WriteU64(offset uint32, value uint64) error {
	ok := m.mem.WriteUint64Le(offset, value)
	if !ok {
		return fmt.Errorf("write out of bounds")
	}
	return nil
}

func (m *WazeroMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// Compile-time check that WazeroMemory implements hbwasm.Memory and MemorySizer
var _ hbwasm.Memory = (*WazeroMemory)(nil)
var _ hbwasm.MemorySizer = (*WazeroMemory)(nil)
