package dtb

import (
	"unsafe"

	"github.com/pkg/errors"
)

// ExtractRaw runs Extract on a blob sitting at a raw address, as handed
// over by the previous boot stage. The magic and declared size are
// checked before the full span is touched, so a bogus pointer never
// turns into a multi-megabyte wild read.
func ExtractRaw(ptr unsafe.Pointer) (*HardwareFacts, error) {
	if ptr == nil {
		return nil, errors.Wrap(ErrBadHeader, "nil blob pointer")
	}
	peek := unsafe.Slice((*byte)(ptr), 8)
	if be.Uint32(peek[0:]) != fdtMagic {
		return nil, errors.Wrapf(ErrBadMagic, "got %#x", be.Uint32(peek[0:]))
	}
	total := be.Uint32(peek[4:])
	if total > maxTotalSize {
		return nil, errors.Wrapf(ErrTooLarge, "totalsize %d", total)
	}
	if total < headerSize {
		return nil, errors.Wrapf(ErrBadHeader, "totalsize %d", total)
	}
	return Extract(unsafe.Slice((*byte)(ptr), int(total)))
}
