package dtb

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
)

// cellCounts is the #address-cells/#size-cells pair a node declares for
// its children. The devicetree spec's defaults apply when a node stays
// silent; counts are NOT inherited from grandparents.
type cellCounts struct {
	addr int
	size int
}

var defaultCells = cellCounts{addr: 2, size: 1}

// pendingNode accumulates the properties of the node currently being
// walked at some depth. Classification happens at the node's end tag,
// once the properties that identify it have all been seen.
type pendingNode struct {
	name       string
	regRaw     []byte
	compatible string
	deviceType string
	status     string
	isa        string
	phandle    uint32
	interrupts uint32
	intParent  uint32
	clockFreq  uint32
	timebase   uint64
	hasReg     bool
	hasTime    bool
}

// scanStructure is the one linear pass. It keeps a stack of active cell
// counts so a nested bus declaring different counts decodes correctly,
// and commits recognized nodes into facts as their end tags are reached.
func scanStructure(blob []byte, h header, facts *HardwareFacts) error {
	s := blob[h.offStruct : h.offStruct+h.sizeStruct]
	strs := blob[h.offStrings : h.offStrings+h.sizeStrings]

	var cells [maxDepth]cellCounts
	var nodes [maxDepth]pendingNode
	depth := -1
	off := 0
	sawEnd := false

	for tok := 0; tok < maxTokens; tok++ {
		if sawEnd {
			break
		}
		if off+4 > len(s) {
			return errors.Wrapf(ErrTruncated, "token at offset %d", off)
		}
		tag := be.Uint32(s[off:])
		off += 4

		switch tag {
		case fdtBeginNode:
			depth++
			if depth >= maxDepth {
				return errors.Wrapf(ErrMalformed, "nesting beyond %d", maxDepth)
			}
			name, n, err := readNodeName(s, off)
			if err != nil {
				return err
			}
			off = n
			cells[depth] = defaultCells
			nodes[depth] = pendingNode{name: name}

		case fdtEndNode:
			if depth < 0 {
				return errors.Wrap(ErrMalformed, "unbalanced end-node")
			}
			parent := defaultCells
			if depth > 0 {
				parent = cells[depth-1]
			}
			if err := commitNode(&nodes[depth], parent, facts); err != nil {
				return err
			}
			depth--

		case fdtProp:
			if depth < 0 {
				return errors.Wrap(ErrMalformed, "property outside any node")
			}
			if off+8 > len(s) {
				return errors.Wrapf(ErrTruncated, "property header at %d", off)
			}
			plen := int(be.Uint32(s[off:]))
			nameOff := int(be.Uint32(s[off+4:]))
			off += 8
			if off+plen > len(s) {
				return errors.Wrapf(ErrTruncated, "property value %d bytes at %d", plen, off)
			}
			name, err := readString(strs, nameOff)
			if err != nil {
				return err
			}
			val := s[off : off+plen]
			off = align4(off + plen)
			if err := recordProp(&nodes[depth], &cells[depth], name, val); err != nil {
				return err
			}

		case fdtNop:
			// nothing

		case fdtEnd:
			if depth >= 0 {
				return errors.Wrap(ErrMalformed, "end token inside open node")
			}
			sawEnd = true

		default:
			return errors.Wrapf(ErrMalformed, "unknown token %d at %d", tag, off-4)
		}
	}
	if !sawEnd {
		return errors.Wrap(ErrTruncated, "no end token")
	}
	return nil
}

func align4(n int) int { return (n + 3) &^ 3 }

func readNodeName(s []byte, off int) (string, int, error) {
	end := bytes.IndexByte(s[off:], 0)
	if end < 0 {
		return "", 0, errors.Wrapf(ErrTruncated, "node name at %d", off)
	}
	return string(s[off : off+end]), align4(off + end + 1), nil
}

func readString(strs []byte, off int) (string, error) {
	if off >= len(strs) {
		return "", errors.Wrapf(ErrTruncated, "string offset %d", off)
	}
	end := bytes.IndexByte(strs[off:], 0)
	if end < 0 {
		return "", errors.Wrap(ErrTruncated, "unterminated string")
	}
	return string(strs[off : off+end]), nil
}

// recordProp stashes the properties we recognize. Cell-count properties
// take effect immediately for the node's children; everything else waits
// in the pending node until classification.
func recordProp(n *pendingNode, c *cellCounts, name string, val []byte) error {
	switch name {
	case "#address-cells":
		v, ok := cellValue(val)
		if !ok || v < 1 || v > 2 {
			return errors.Wrapf(ErrBadCells, "#address-cells in %q", n.name)
		}
		c.addr = v
	case "#size-cells":
		// zero is legitimate here: /cpus children carry no sizes
		v, ok := cellValue(val)
		if !ok || v > 2 {
			return errors.Wrapf(ErrBadCells, "#size-cells in %q", n.name)
		}
		c.size = v
	case "reg":
		n.regRaw = val
		n.hasReg = true
	case "compatible":
		// NUL separated list; keep it raw for substring matching
		n.compatible = string(val)
	case "device_type":
		n.deviceType = cstr(val)
	case "status":
		n.status = cstr(val)
	case "riscv,isa":
		n.isa = cstr(val)
	case "phandle":
		if u, ok := u32Value(val); ok {
			n.phandle = u
		}
	case "interrupts":
		if u, ok := u32Value(val); ok {
			n.interrupts = u
		}
	case "interrupt-parent":
		if u, ok := u32Value(val); ok {
			n.intParent = u
		}
	case "clock-frequency":
		if u, ok := u32Value(val); ok {
			n.clockFreq = u
		}
	case "timebase-frequency":
		switch len(val) {
		case 4:
			n.timebase = uint64(be.Uint32(val))
			n.hasTime = true
		case 8:
			n.timebase = be.Uint64(val)
			n.hasTime = true
		}
	}
	return nil
}

func cellValue(val []byte) (int, bool) {
	if len(val) != 4 {
		return 0, false
	}
	return int(be.Uint32(val)), true
}

func u32Value(val []byte) (uint32, bool) {
	if len(val) != 4 {
		return 0, false
	}
	return be.Uint32(val), true
}

func cstr(val []byte) string {
	return strings.TrimRight(string(val), "\x00")
}

// commitNode classifies a finished node and folds the facts we care
// about into the result. parent carries the cell counts that govern this
// node's reg property.
func commitNode(n *pendingNode, parent cellCounts, facts *HardwareFacts) error {
	bare := n.name
	if i := strings.IndexByte(bare, '@'); i >= 0 {
		bare = bare[:i]
	}

	switch {
	case n.deviceType == "memory":
		regions, err := decodeReg(n, parent)
		if err != nil {
			return err
		}
		facts.Memory = append(facts.Memory, regions...)

	case n.deviceType == "cpu":
		if !n.hasReg {
			return errors.Wrapf(ErrMissing, "cpu node %q reg", n.name)
		}
		// cpu reg is the hart id: address cells only, no size
		id, err := decodeCells(n.regRaw, parent.addr)
		if err != nil {
			return errors.Wrapf(err, "cpu node %q", n.name)
		}
		facts.Harts = append(facts.Harts, Hart{
			ID:      uint32(id),
			ISA:     n.isa,
			Enabled: n.status == "" || n.status == "okay",
		})
		// some trees hang the timebase off each cpu instead of /cpus
		if n.hasTime && facts.TimebaseFreq == 0 {
			facts.TimebaseFreq = n.timebase
		}

	case compatContains(n.compatible, "ns16550"):
		regions, err := decodeReg(n, parent)
		if err != nil {
			return err
		}
		if facts.UART.Reg.Base == 0 && len(regions) > 0 {
			facts.UART = UART{
				Reg:             regions[0],
				Interrupt:       n.interrupts,
				InterruptParent: n.intParent,
				ClockFreq:       n.clockFreq,
			}
		}

	case compatContains(n.compatible, "riscv,plic0") || compatContains(n.compatible, "sifive,plic"):
		regions, err := decodeReg(n, parent)
		if err != nil {
			return err
		}
		if facts.PLIC.Reg.Base == 0 && len(regions) > 0 {
			facts.PLIC = PLIC{Reg: regions[0], Phandle: n.phandle}
		}

	case bare == "cpus" && n.hasTime:
		facts.TimebaseFreq = n.timebase
	}
	return nil
}

// compatContains reports whether one entry of a NUL separated compatible
// list contains the needle.
func compatContains(list, needle string) bool {
	return list != "" && strings.Contains(list, needle)
}

// decodeReg splits a reg property into (base, size) regions using the
// parent's active cell counts.
func decodeReg(n *pendingNode, parent cellCounts) ([]Region, error) {
	if !n.hasReg {
		return nil, errors.Wrapf(ErrMissing, "node %q reg", n.name)
	}
	if parent.size == 0 {
		return nil, errors.Wrapf(ErrBadCells, "node %q reg with zero size-cells", n.name)
	}
	entry := (parent.addr + parent.size) * 4
	if entry == 0 || len(n.regRaw)%entry != 0 || len(n.regRaw) == 0 {
		return nil, errors.Wrapf(ErrTruncated, "node %q reg of %d bytes", n.name, len(n.regRaw))
	}
	var out []Region
	for off := 0; off < len(n.regRaw); off += entry {
		base, err := decodeCells(n.regRaw[off:], parent.addr)
		if err != nil {
			return nil, errors.Wrapf(err, "node %q", n.name)
		}
		size, err := decodeCells(n.regRaw[off+parent.addr*4:], parent.size)
		if err != nil {
			return nil, errors.Wrapf(err, "node %q", n.name)
		}
		out = append(out, Region{Base: base, Size: size})
	}
	return out, nil
}

func decodeCells(b []byte, cells int) (uint64, error) {
	switch cells {
	case 1:
		if len(b) < 4 {
			return 0, errors.Wrap(ErrTruncated, "cell value")
		}
		return uint64(be.Uint32(b)), nil
	case 2:
		if len(b) < 8 {
			return 0, errors.Wrap(ErrTruncated, "cell value")
		}
		return be.Uint64(b), nil
	}
	return 0, errors.Wrapf(ErrBadCells, "%d cells", cells)
}
