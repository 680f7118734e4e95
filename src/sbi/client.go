package sbi

import "github.com/pkg/errors"

// Client exposes each firmware service as a typed operation. Build one
// with Probe; the probe results gate every later call so nothing is ever
// issued to an extension the firmware did not announce.
type Client struct {
	fw      Firmware
	version SpecVersion

	haveTime    bool
	haveIPI     bool
	haveRfence  bool
	haveHSM     bool
	haveSRST    bool
	havePutChar bool
	haveGetChar bool
}

// Probe establishes that an SBI implementation is present (the base
// extension is mandatory) and records which extensions it announces.
// It is the only way to get a Client.
func Probe(fw Firmware) (*Client, error) {
	a0, a1 := fw.Ecall(extBase, baseGetSpecVersion, 0, 0, 0, 0, 0, 0)
	if err := errFromRaw(a0); err != nil {
		return nil, errors.Wrap(err, "sbi base extension missing")
	}
	c := &Client{fw: fw}
	c.version = SpecVersion{
		Major: int(a1>>24) & 0x7f,
		Minor: int(a1) & 0xffffff,
	}
	c.haveTime = c.probe(extTime)
	c.haveIPI = c.probe(extIPI)
	c.haveRfence = c.probe(extRfence)
	c.haveHSM = c.probe(extHSM)
	c.haveSRST = c.probe(extSRST)
	c.havePutChar = c.probe(extLegacyPutChar)
	c.haveGetChar = c.probe(extLegacyGetChar)
	return c, nil
}

func (c *Client) probe(ext uintptr) bool {
	a0, a1 := c.fw.Ecall(extBase, baseProbeExtension, ext, 0, 0, 0, 0, 0)
	return errFromRaw(a0) == nil && a1 != 0
}

// SpecVersion reports the firmware's SBI spec version.
func (c *Client) SpecVersion() SpecVersion { return c.version }

//////////////////////////////////////////////////////////////////
// Console (legacy extensions)
//////////////////////////////////////////////////////////////////

// PutChar emits one byte on the firmware console. The legacy putchar
// extension has no error channel, so this is best effort by contract:
// callers must not depend on delivery.
func (c *Client) PutChar(b byte) {
	if !c.havePutChar {
		return
	}
	c.fw.Ecall(extLegacyPutChar, 0, uintptr(b), 0, 0, 0, 0, 0)
}

// GetChar polls the firmware console for one byte. The second return is
// false when no byte is pending. The legacy ABI signals absence with a
// negative value in a0; 0x00 is a legitimate byte and is returned as one.
func (c *Client) GetChar() (byte, bool) {
	if !c.haveGetChar {
		return 0, false
	}
	a0, _ := c.fw.Ecall(extLegacyGetChar, 0, 0, 0, 0, 0, 0, 0)
	v := int64(a0)
	if v < 0 || v > 255 {
		return 0, false
	}
	return byte(v), true
}

//////////////////////////////////////////////////////////////////
// Timer
//////////////////////////////////////////////////////////////////

// SetTimer programs the next timer interrupt for the calling hart at an
// absolute tick count. Arming also clears any pending timer interrupt.
func (c *Client) SetTimer(deadline uint64) error {
	if !c.haveTime {
		return errors.Wrap(ErrNotSupported, "TIME extension")
	}
	a0, _ := c.fw.Ecall(extTime, timeSetTimer, uintptr(deadline), 0, 0, 0, 0, 0)
	return errFromRaw(a0)
}

//////////////////////////////////////////////////////////////////
// Inter-hart
//////////////////////////////////////////////////////////////////

// SendIPI raises a supervisor software interrupt on every hart in m.
func (c *Client) SendIPI(m HartMask) error {
	if !c.haveIPI {
		return errors.Wrap(ErrNotSupported, "sPI extension")
	}
	a0, _ := c.fw.Ecall(extIPI, ipiSendIPI, m.Mask, m.Base, 0, 0, 0, 0)
	return errFromRaw(a0)
}

// RemoteFenceI executes FENCE.I on every hart in m, making instruction
// stores from this hart visible to their fetch units.
func (c *Client) RemoteFenceI(m HartMask) error {
	if !c.haveRfence {
		return errors.Wrap(ErrNotSupported, "RFNC extension")
	}
	a0, _ := c.fw.Ecall(extRfence, rfenceFenceI, m.Mask, m.Base, 0, 0, 0, 0)
	return errFromRaw(a0)
}

//////////////////////////////////////////////////////////////////
// Hart state
//////////////////////////////////////////////////////////////////

// HartSuspend puts the calling hart into retentive suspend. It returns
// after the next interrupt wakes the hart, or immediately with an error
// if the firmware refuses.
func (c *Client) HartSuspend() error {
	if !c.haveHSM {
		return errors.Wrap(ErrNotSupported, "HSM extension")
	}
	a0, _ := c.fw.Ecall(extHSM, hsmHartSuspend, RetentiveSuspend, 0, 0, 0, 0, 0)
	return errFromRaw(a0)
}

//////////////////////////////////////////////////////////////////
// Reset
//////////////////////////////////////////////////////////////////

// SystemReset asks firmware to reset the platform. On success the call
// does not return; control comes back only when firmware rejects the
// request, and the returned error says why.
func (c *Client) SystemReset(t ResetType, r ResetReason) error {
	if !c.haveSRST {
		return errors.Wrap(ErrNotSupported, "SRST extension")
	}
	a0, _ := c.fw.Ecall(extSRST, srstSystemReset, uintptr(t), uintptr(r), 0, 0, 0, 0)
	if err := errFromRaw(a0); err != nil {
		return err
	}
	// Success means firmware took the machine down; reaching here at all
	// is a firmware bug.
	return errors.New("sbi: system reset returned success without resetting")
}

// Shutdown powers the system off, preferring SRST and falling back to the
// legacy shutdown extension. It returns only on failure.
func (c *Client) Shutdown() error {
	err := c.SystemReset(ResetShutdown, ReasonNone)
	if errors.Cause(err) == ErrNotSupported {
		// Legacy shutdown: no return value at all on success.
		c.fw.Ecall(extLegacyShutdown, 0, 0, 0, 0, 0, 0, 0)
		return errors.New("sbi: legacy shutdown returned")
	}
	return err
}
