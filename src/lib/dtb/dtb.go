// Package dtb extracts the kernel's hardware facts from a flattened
// device tree blob. It is not a device tree parser: one linear scan over
// the structure block recognizes exactly the nodes and properties the
// kernel needs and ignores everything else. The blob is untrusted input;
// every read is bounds checked and any malformation aborts the whole
// extraction rather than yielding partial facts.
package dtb

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	fdtMagic = 0xd00dfeed

	// A QEMU virt blob is well under a megabyte. Anything claiming more
	// than this is garbage, not hardware description.
	maxTotalSize = 16 << 20

	// structure block layout is fixed at version 17
	supportedVersion = 17

	headerSize = 40

	fdtBeginNode = 1
	fdtEndNode   = 2
	fdtProp      = 3
	fdtNop       = 4
	fdtEnd       = 9

	maxDepth = 32
	// hard cap on structure tokens, against a blob crafted to loop us
	maxTokens = 200000
)

// The distinct failure kinds. Initialization matches on these to decide
// its diagnostic; all of them are boot-fatal to the caller.
var (
	ErrBadMagic  = errors.New("dtb: bad magic")
	ErrTooLarge  = errors.New("dtb: declared size beyond sanity bound")
	ErrBadHeader = errors.New("dtb: malformed header")
	ErrTruncated = errors.New("dtb: truncated structure data")
	ErrMalformed = errors.New("dtb: malformed structure block")
	ErrBadCells  = errors.New("dtb: cell count outside supported set")
	ErrMissing   = errors.New("dtb: required fact missing")
)

var be = binary.BigEndian

type header struct {
	totalSize   uint32
	offStruct   uint32
	sizeStruct  uint32
	offStrings  uint32
	sizeStrings uint32
	offRsvmap   uint32
	version     uint32
	lastComp    uint32
}

func parseHeader(blob []byte) (header, error) {
	var h header
	if len(blob) < headerSize {
		return h, errors.Wrapf(ErrBadHeader, "%d header bytes", len(blob))
	}
	if be.Uint32(blob[0:]) != fdtMagic {
		return h, errors.Wrapf(ErrBadMagic, "got %#x", be.Uint32(blob[0:]))
	}
	h.totalSize = be.Uint32(blob[4:])
	h.offStruct = be.Uint32(blob[8:])
	h.offStrings = be.Uint32(blob[12:])
	h.offRsvmap = be.Uint32(blob[16:])
	h.version = be.Uint32(blob[20:])
	h.lastComp = be.Uint32(blob[24:])
	h.sizeStrings = be.Uint32(blob[32:])
	h.sizeStruct = be.Uint32(blob[36:])

	if h.totalSize > maxTotalSize {
		return h, errors.Wrapf(ErrTooLarge, "totalsize %d", h.totalSize)
	}
	if int(h.totalSize) > len(blob) || h.totalSize < headerSize {
		return h, errors.Wrapf(ErrBadHeader, "totalsize %d of %d blob bytes", h.totalSize, len(blob))
	}
	if h.version < supportedVersion || h.lastComp > supportedVersion {
		return h, errors.Wrapf(ErrBadHeader, "version %d last_comp %d", h.version, h.lastComp)
	}
	if !rangeOK(h.offStruct, h.sizeStruct, h.totalSize) {
		return h, errors.Wrapf(ErrBadHeader, "structure block %d+%d", h.offStruct, h.sizeStruct)
	}
	if !rangeOK(h.offStrings, h.sizeStrings, h.totalSize) {
		return h, errors.Wrapf(ErrBadHeader, "strings block %d+%d", h.offStrings, h.sizeStrings)
	}
	if h.offRsvmap >= h.totalSize || h.offRsvmap%8 != 0 {
		return h, errors.Wrapf(ErrBadHeader, "rsvmap offset %d", h.offRsvmap)
	}
	return h, nil
}

func rangeOK(off, size, total uint32) bool {
	return off <= total && size <= total && off+size >= off && off+size <= total
}

// Extract runs the single scan and returns fully populated facts, or an
// error and no facts at all.
func Extract(blob []byte) (*HardwareFacts, error) {
	h, err := parseHeader(blob)
	if err != nil {
		return nil, err
	}
	facts := &HardwareFacts{}
	if err := scanReservations(blob, h, facts); err != nil {
		return nil, err
	}
	if err := scanStructure(blob, h, facts); err != nil {
		return nil, err
	}
	if err := checkComplete(facts); err != nil {
		return nil, err
	}
	return facts, nil
}

// scanReservations reads the memory reservation block: (address, size)
// big-endian u64 pairs terminated by a zero entry.
func scanReservations(blob []byte, h header, facts *HardwareFacts) error {
	off := int(h.offRsvmap)
	for {
		if off+16 > int(h.totalSize) {
			return errors.Wrap(ErrTruncated, "memory reservation block")
		}
		base := be.Uint64(blob[off:])
		size := be.Uint64(blob[off+8:])
		if base == 0 && size == 0 {
			return nil
		}
		facts.Reserved = append(facts.Reserved, Region{Base: base, Size: size})
		off += 16
	}
}

// checkComplete enforces the all-or-nothing contract: a scan that did not
// see every required fact produces no HardwareFacts at all.
func checkComplete(f *HardwareFacts) error {
	switch {
	case len(f.Memory) == 0:
		return errors.Wrap(ErrMissing, "memory node")
	case f.UART.Reg.Base == 0:
		return errors.Wrap(ErrMissing, "uart node")
	case f.PLIC.Reg.Base == 0:
		return errors.Wrap(ErrMissing, "plic node")
	case f.TimebaseFreq == 0:
		return errors.Wrap(ErrMissing, "timebase-frequency")
	case len(f.Harts) == 0:
		return errors.Wrap(ErrMissing, "cpu nodes")
	}
	return nil
}
