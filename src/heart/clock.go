package heart

import "time"

// Clock converts between ticks of the platform timebase and wall
// durations. The timebase frequency comes out of the device tree, so the
// conversion factors are not known until discovery has run.
type Clock struct {
	freq uint64
	read func() uint64
}

func NewClock(freq uint64, read func() uint64) *Clock {
	return &Clock{freq: freq, read: read}
}

// Frequency is the timebase in ticks per second.
func (c *Clock) Frequency() uint64 { return c.freq }

// Ticks reads the current counter value. The counter is shared by all
// harts and never goes backwards.
func (c *Clock) Ticks() uint64 { return c.read() }

// Uptime is the counter expressed as a duration since whenever the
// platform started counting.
func (c *Clock) Uptime() time.Duration {
	return c.FromTicks(c.Ticks())
}

// FromTicks converts a tick count to a duration. Split into whole seconds
// plus remainder so a counter that has been running for years does not
// overflow the nanosecond multiply.
func (c *Clock) FromTicks(t uint64) time.Duration {
	secs := t / c.freq
	rem := t % c.freq
	return time.Duration(secs)*time.Second +
		time.Duration(rem*uint64(time.Second)/c.freq)
}

// ToTicks converts a duration to a tick count, rounding down. Negative
// durations clamp to zero.
func (c *Clock) ToTicks(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	secs := uint64(d / time.Second)
	rem := uint64(d % time.Second)
	return secs*c.freq + rem*c.freq/uint64(time.Second)
}
