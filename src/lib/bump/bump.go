// Package bump is the allocator the kernel runs on before any real heap
// management exists. It owns one region of memory and only ever moves a
// cursor forward through it; there is no free.
package bump

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

var (
	// ErrOutOfMemory means the request would advance the cursor past the
	// region end. The allocator never wraps and never hands out an
	// address outside its region; the caller decides whether this is
	// fatal.
	ErrOutOfMemory = errors.New("bump: out of memory")

	// ErrBadAlign means the requested alignment is zero or not a power
	// of two.
	ErrBadAlign = errors.New("bump: alignment must be a power of two")

	// ErrBadRegion means start/end do not describe a usable region.
	ErrBadRegion = errors.New("bump: region end must be above region start")
)

// Region is a single monotonically consumed span of memory. The cursor
// only advances. Updates go through compare-and-swap so the allocator
// stays correct once secondary harts start allocating, even though the
// boot sequence only exercises it from one hart.
type Region struct {
	start  uintptr
	end    uintptr
	cursor atomic.Uintptr
}

// New returns an allocator over [start, end).
func New(start, end uintptr) (*Region, error) {
	if end <= start {
		return nil, errors.Wrapf(ErrBadRegion, "start %#x end %#x", start, end)
	}
	r := &Region{start: start, end: end}
	r.cursor.Store(start)
	return r, nil
}

// Alloc returns the lowest address at or beyond the cursor that satisfies
// align, and advances the cursor past size bytes from there. A zero size
// is allowed and reserves nothing, but still returns an aligned address.
func (r *Region) Alloc(size, align uintptr) (uintptr, error) {
	if align == 0 || align&(align-1) != 0 {
		return 0, errors.Wrapf(ErrBadAlign, "align %d", align)
	}
	for {
		cur := r.cursor.Load()
		p := (cur + align - 1) &^ (align - 1)
		if p < cur {
			// aligning wrapped the address space
			return 0, errors.Wrapf(ErrOutOfMemory, "%d bytes align %d", size, align)
		}
		next := p + size
		if next < p || next > r.end {
			return 0, errors.Wrapf(ErrOutOfMemory, "%d bytes align %d, %d left", size, align, r.end-cur)
		}
		if r.cursor.CompareAndSwap(cur, next) {
			return p, nil
		}
	}
}

// Start returns the region's first address.
func (r *Region) Start() uintptr { return r.start }

// End returns the address one past the region.
func (r *Region) End() uintptr { return r.end }

// Remaining returns how many bytes are left before the region end.
func (r *Region) Remaining() uintptr { return r.end - r.cursor.Load() }

// Used returns how many bytes have been consumed, alignment waste
// included.
func (r *Region) Used() uintptr { return r.cursor.Load() - r.start }
