package handle

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	hberrors "github.com/glyphlab/hbwasm/errors"
)

type fakeObj struct {
	ptr Ptr
}

type destroyCounter struct {
	calls map[Ptr]*atomic.Int32
}

func newDestroyCounter() *destroyCounter {
	return &destroyCounter{calls: make(map[Ptr]*atomic.Int32)}
}

func (d *destroyCounter) fn(p Ptr) {
	c, ok := d.calls[p]
	if !ok {
		panic("destroy for untracked pointer")
	}
	c.Add(1)
}

func (d *destroyCounter) track(p Ptr) {
	d.calls[p] = &atomic.Int32{}
}

func (d *destroyCounter) count(p Ptr) int32 {
	return d.calls[p].Load()
}

func TestRegistry_WrapNull(t *testing.T) {
	d := newDestroyCounter()
	r := NewRegistry[fakeObj]("blob", d.fn)

	_, err := r.Wrap(0, func(p Ptr) *fakeObj { return &fakeObj{ptr: p} })
	if err == nil {
		t.Fatal("expected error wrapping null pointer")
	}
	if !errors.Is(err, &hberrors.Error{Phase: hberrors.PhaseRegistry, Kind: hberrors.KindInvalidHandle}) {
		t.Fatalf("expected invalid_handle error, got %v", err)
	}
	if r.Len() != 0 {
		t.Fatal("registry must stay empty after failed wrap")
	}
}

func TestRegistry_Identity(t *testing.T) {
	d := newDestroyCounter()
	d.track(0x1000)
	r := NewRegistry[fakeObj]("blob", d.fn)

	a, err := r.Wrap(0x1000, func(p Ptr) *fakeObj { return &fakeObj{ptr: p} })
	if err != nil {
		t.Fatal(err)
	}
	if d.count(0x1000) != 0 {
		t.Fatal("first wrap must not release the adopted reference")
	}

	// Simulates a foreign call that bumped the refcount and returned the
	// same pointer again.
	b, err := r.Wrap(0x1000, func(p Ptr) *fakeObj { return &fakeObj{ptr: p} })
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("wrapping the same pointer twice must return the same wrapper")
	}
	if got := d.count(0x1000); got != 1 {
		t.Fatalf("redundant wrap must release exactly one reference, got %d", got)
	}
	if r.Len() != 1 {
		t.Fatalf("expected one live entry, got %d", r.Len())
	}
}

func TestRegistry_RoundTrip(t *testing.T) {
	d := newDestroyCounter()
	d.track(0x2000)
	r := NewRegistry[fakeObj]("face", d.fn)

	a, err := r.Wrap(0x2000, func(p Ptr) *fakeObj { return &fakeObj{ptr: p} })
	if err != nil {
		t.Fatal(err)
	}

	// Extract the pointer and wrap it again: must not create a second
	// distinct wrapper while the first is alive.
	b, err := r.Wrap(a.ptr, func(p Ptr) *fakeObj { return &fakeObj{ptr: p} })
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("round trip produced a distinct wrapper")
	}
}

func TestRegistry_Get(t *testing.T) {
	d := newDestroyCounter()
	d.track(0x3000)
	r := NewRegistry[fakeObj]("font", d.fn)

	if _, ok := r.Get(0x3000); ok {
		t.Fatal("Get must miss before any wrap")
	}

	a, _ := r.Wrap(0x3000, func(p Ptr) *fakeObj { return &fakeObj{ptr: p} })

	got, ok := r.Get(0x3000)
	if !ok || got != a {
		t.Fatal("Get must return the live wrapper")
	}
	if d.count(0x3000) != 0 {
		t.Fatal("Get must not consume a reference")
	}

	if _, ok := r.Get(0); ok {
		t.Fatal("Get(0) must miss")
	}
}

// wrapAndDrop creates a wrapper in its own frame so no reference survives
// the return.
func wrapAndDrop(t *testing.T, r *Registry[fakeObj], p Ptr) {
	t.Helper()
	obj, err := r.Wrap(p, func(p Ptr) *fakeObj { return &fakeObj{ptr: p} })
	if err != nil {
		t.Fatal(err)
	}
	if obj.ptr != p {
		t.Fatal("constructed wrapper holds wrong pointer")
	}
}

func waitForCount(t *testing.T, d *destroyCounter, p Ptr, want int32) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		runtime.GC()
		if d.count(p) >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("destroy count for %#x did not reach %d (got %d)", p, want, d.count(p))
}

func TestRegistry_ReleaseOnCollection(t *testing.T) {
	d := newDestroyCounter()
	d.track(0x4000)
	r := NewRegistry[fakeObj]("buffer", d.fn)

	wrapAndDrop(t, r, 0x4000)
	waitForCount(t, d, 0x4000, 1)

	// Exactly one destroy, and the entry must have lapsed.
	time.Sleep(50 * time.Millisecond)
	runtime.GC()
	if got := d.count(0x4000); got != 1 {
		t.Fatalf("expected exactly one destroy, got %d", got)
	}
	if r.Len() != 0 {
		t.Fatalf("expected entry to lapse, registry has %d live entries", r.Len())
	}
}

func TestRegistry_Disarm(t *testing.T) {
	d := newDestroyCounter()
	d.track(0x5000)
	r := NewRegistry[fakeObj]("shape-plan", d.fn)

	wrapAndDrop(t, r, 0x5000)
	r.Disarm()

	for i := 0; i < 5; i++ {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if got := d.count(0x5000); got != 0 {
		t.Fatalf("disarmed registry must not destroy, got %d calls", got)
	}

	// New wraps are refused after disarm.
	_, err := r.Wrap(0x5000, func(p Ptr) *fakeObj { return &fakeObj{ptr: p} })
	if !errors.Is(err, &hberrors.Error{Phase: hberrors.PhaseCall, Kind: hberrors.KindClosed}) {
		t.Fatalf("expected closed error after disarm, got %v", err)
	}
}

func TestRegistry_DistinctPointers(t *testing.T) {
	d := newDestroyCounter()
	d.track(0x6000)
	d.track(0x7000)
	r := NewRegistry[fakeObj]("set", d.fn)

	a, _ := r.Wrap(0x6000, func(p Ptr) *fakeObj { return &fakeObj{ptr: p} })
	b, _ := r.Wrap(0x7000, func(p Ptr) *fakeObj { return &fakeObj{ptr: p} })

	if a == b {
		t.Fatal("distinct pointers must yield distinct wrappers")
	}
	if r.Len() != 2 {
		t.Fatalf("expected two live entries, got %d", r.Len())
	}
	if d.count(0x6000) != 0 || d.count(0x7000) != 0 {
		t.Fatal("no references should have been released")
	}
}
