package carousel

import "sync"

// Carousel tracks which banner is currently displayed. The index advances by
// one, wrapping modulo the banner count, on each tick, and resets to zero
// whenever the count changes so it can never point past the end of the list.
// Nothing is persisted; a restart simply begins again at zero.
type Carousel struct {
	mu    sync.Mutex
	index int
	count int
}

// New returns a carousel with no banners.
func New() *Carousel {
	return &Carousel{}
}

// SetCount records the current banner count, resetting the index to zero if
// the count changed.
func (c *Carousel) SetCount(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n != c.count {
		c.count = n
		c.index = 0
	}
}

// Advance moves to the next banner. With one banner or none there is
// nothing to rotate through, so the index stays put.
func (c *Carousel) Advance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count > 1 {
		c.index = (c.index + 1) % c.count
	}
}

// State returns the current index and banner count.
func (c *Carousel) State() (index, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index, c.count
}
