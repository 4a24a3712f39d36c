package hb

import (
	"context"
	"os"

	hberrors "github.com/glyphlab/hbwasm/errors"
	"github.com/glyphlab/hbwasm/handle"
)

// MemoryMode is hb_memory_mode_t.
type MemoryMode uint32

const (
	MemoryModeDuplicate MemoryMode = iota
	MemoryModeReadonly
	MemoryModeWritable
	MemoryModeReadonlyMayMakeWritable
)

// Blob wraps hb_blob_t, an immutable reference to a span of font bytes living
// in guest memory.
type Blob struct {
	lib *Library
	ptr handle.Ptr
}

// NewBlob copies data into guest memory and wraps it in a blob. The guest
// copy is freed when the blob's last reference drops.
func (l *Library) NewBlob(ctx context.Context, data []byte) (*Blob, error) {
	ptr, err := l.f.Alloc(ctx, uint32(len(data)))
	if err != nil {
		return nil, err
	}
	if err := l.mem().Write(ptr, data); err != nil {
		l.f.Free(ctx, ptr)
		return nil, err
	}

	// The shim attaches a guest-side destroy notify that frees the copy, so
	// no host round trip happens at teardown.
	raw, err := l.call(ctx, "hbw_blob_create",
		uint64(ptr), uint64(uint32(len(data))), uint64(MemoryModeWritable))
	if err != nil {
		l.f.Free(ctx, ptr)
		return nil, err
	}
	return l.wrapBlob(raw)
}

// NewBlobFromFile reads a font file and wraps its contents in a blob.
func (l *Library) NewBlobFromFile(ctx context.Context, path string) (*Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return l.NewBlob(ctx, data)
}

// EmptyBlob returns the canonical empty blob.
func (l *Library) EmptyBlob(ctx context.Context) (*Blob, error) {
	raw, err := l.call(ctx, "hb_blob_get_empty")
	if err != nil {
		return nil, err
	}
	// The empty singleton's refcount is inert, but wrapping still adopts a
	// balanced reference.
	if _, err := l.call(ctx, "hb_blob_reference", raw); err != nil {
		return nil, err
	}
	return l.wrapBlob(raw)
}

// SubBlob returns a blob spanning a sub-range of b. The sub-blob keeps its
// parent alive on the guest side.
func (b *Blob) SubBlob(ctx context.Context, offset, length uint32) (*Blob, error) {
	raw, err := b.lib.call(ctx, "hb_blob_create_sub_blob",
		uint64(b.ptr), uint64(offset), uint64(length))
	if err != nil {
		return nil, err
	}
	return b.lib.wrapBlob(raw)
}

// Length returns the blob's size in bytes.
func (b *Blob) Length(ctx context.Context) (uint32, error) {
	v, err := b.lib.call(ctx, "hb_blob_get_length", uint64(b.ptr))
	return uint32(v), err
}

// Data copies the blob's bytes out of guest memory.
func (b *Blob) Data(ctx context.Context) ([]byte, error) {
	lenPtr, err := b.lib.f.Alloc(ctx, 4)
	if err != nil {
		return nil, err
	}
	defer b.lib.f.Free(ctx, lenPtr)

	dataPtr, err := b.lib.call(ctx, "hb_blob_get_data", uint64(b.ptr), uint64(lenPtr))
	if err != nil {
		return nil, err
	}
	n, err := b.lib.mem().ReadU32(lenPtr)
	if err != nil {
		return nil, err
	}
	if dataPtr == 0 || n == 0 {
		return nil, nil
	}
	raw, err := b.lib.mem().Read(uint32(dataPtr), n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, raw)
	return out, nil
}

// WriteData overwrites bytes inside the blob in place. It fails once the
// blob has been made immutable.
func (b *Blob) WriteData(ctx context.Context, offset uint32, data []byte) error {
	lenPtr, err := b.lib.f.Alloc(ctx, 4)
	if err != nil {
		return err
	}
	defer b.lib.f.Free(ctx, lenPtr)

	dataPtr, err := b.lib.call(ctx, "hb_blob_get_data_writable", uint64(b.ptr), uint64(lenPtr))
	if err != nil {
		return err
	}
	if dataPtr == 0 {
		return hberrors.InvalidData(hberrors.PhaseCall, "blob is immutable")
	}
	n, err := b.lib.mem().ReadU32(lenPtr)
	if err != nil {
		return err
	}
	if uint64(offset)+uint64(len(data)) > uint64(n) {
		return hberrors.OutOfBounds(hberrors.PhaseEncode, offset, uint32(len(data)))
	}
	return b.lib.mem().Write(uint32(dataPtr)+offset, data)
}

// IsImmutable reports whether the blob has been made immutable.
func (b *Blob) IsImmutable(ctx context.Context) (bool, error) {
	v, err := b.lib.call(ctx, "hb_blob_is_immutable", uint64(b.ptr))
	return v != 0, err
}

// MakeImmutable freezes the blob.
func (b *Blob) MakeImmutable(ctx context.Context) error {
	_, err := b.lib.call(ctx, "hb_blob_make_immutable", uint64(b.ptr))
	return err
}
