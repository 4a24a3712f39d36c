package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	hberrors "github.com/glyphlab/hbwasm/errors"
)

// Engine owns a wazero runtime hosting HarfBuzz instances.
type Engine struct {
	runtime      wazero.Runtime
	wasiInitMu   sync.Mutex
	wasiInitDone atomic.Bool
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// CacheDir enables persistent compilation caching. Compiling the HarfBuzz
	// module takes noticeable time; a warm cache makes startup near-instant.
	CacheDir string
}

// New creates a wazero-based engine.
func New(ctx context.Context) (*Engine, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates a new engine with custom configuration
func NewWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.CacheDir != "" {
			cache, err := wazero.NewCompilationCacheWithDir(cfg.CacheDir)
			if err != nil {
				return nil, hberrors.Load("create compilation cache", err)
			}
			runtimeCfg = runtimeCfg.WithCompilationCache(cache)
		}
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return &Engine{runtime: runtime}, nil
}

// Compile compiles the HarfBuzz WASM module without instantiating it.
func (e *Engine) Compile(ctx context.Context, wasmBytes []byte) (*Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, hberrors.Load("compile module", err)
	}
	return &Module{engine: e, compiled: compiled}, nil
}

// initWASI instantiates the WASI singleton for this engine's runtime.
// Safe for concurrent calls from multiple instances sharing the same engine.
func (e *Engine) initWASI(ctx context.Context) error {
	if e.wasiInitDone.Load() {
		return nil
	}

	e.wasiInitMu.Lock()
	defer e.wasiInitMu.Unlock()

	if e.wasiInitDone.Load() {
		return nil
	}

	if e.runtime.Module("wasi_snapshot_preview1") != nil {
		e.wasiInitDone.Store(true)
		return nil
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
		if e.runtime.Module("wasi_snapshot_preview1") == nil {
			return hberrors.Load("instantiate WASI", err)
		}
	}

	e.wasiInitDone.Store(true)
	return nil
}

func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Module is a compiled HarfBuzz WASM module, ready to instantiate.
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
}

func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
