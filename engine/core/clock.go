package core

import "golang.org/x/exp/constraints"

// FrameClock counts rendered frames. It is owned by a single cache or binder
// and only moves when its owner collects garbage.
type FrameClock struct {
	now uint64
}

func NewFrameClock() *FrameClock {
	return &FrameClock{}
}

// Now returns the current frame number.
func (c *FrameClock) Now() uint64 {
	return c.now
}

// Advance moves the clock one frame forward and returns the new frame number.
func (c *FrameClock) Advance() uint64 {
	c.now++
	return c.now
}

// Expired reports whether something last touched at stamp has been idle for
// more than grace frames at frame now. It never reports true while now <= grace,
// so unsigned subtraction cannot wrap.
func Expired[T constraints.Unsigned](stamp, now, grace T) bool {
	if now <= grace {
		return false
	}
	return stamp < now-grace
}
