package heart

import "courage/src/sbi"

// Console adapts the firmware console calls to io.Writer so fmt and the
// logger can print through it. Output is line-disciplined for a raw
// serial port: every newline gets a carriage return in front of it.
type Console struct {
	fw *sbi.Client
}

func NewConsole(fw *sbi.Client) *Console {
	return &Console{fw: fw}
}

func (c *Console) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			c.fw.PutChar('\r')
		}
		c.fw.PutChar(b)
	}
	return len(p), nil
}

// ReadByte polls the firmware for one input byte, false when nothing is
// waiting.
func (c *Console) ReadByte() (byte, bool) {
	return c.fw.GetChar()
}
