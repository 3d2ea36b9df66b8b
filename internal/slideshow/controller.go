package slideshow

import (
	"sync"
	"time"

	"github.com/hokkyo/photoframe/backend/internal/model"
)

// Controller drives the timed advance through the photo sequence. The
// advance timer runs only while playing and is restarted on every
// play-state, interval or photo-set change; Close releases it for good.
type Controller struct {
	mu       sync.Mutex
	photos   []model.Photo
	index    int
	interval time.Duration
	playing  bool
	closed   bool
	stop     chan struct{} // non-nil exactly while the tick loop runs
}

// NewController creates a paused controller with the given advance interval.
func NewController(interval time.Duration) *Controller {
	return &Controller{interval: interval}
}

// SetPhotos replaces the photo sequence and rewinds to the first photo.
// A running timer is restarted so the new first photo gets a full interval.
func (c *Controller) SetPhotos(photos []model.Photo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.photos = photos
	c.index = 0
	c.restartLocked()
}

// SetInterval changes the advance interval, restarting a running timer.
func (c *Controller) SetInterval(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = interval
	c.restartLocked()
}

// Play starts the advance timer. No-op while already playing or closed.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing || c.closed {
		return
	}
	c.playing = true
	c.startLocked()
}

// Pause stops the advance timer, keeping the current position.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
	c.stopLocked()
}

// Next advances to the next photo immediately, wrapping at the end.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked(1)
}

// Previous steps back one photo, wrapping at the start.
func (c *Controller) Previous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked(-1)
}

// Current returns the photo on display, or false when the sequence is empty.
func (c *Controller) Current() (model.Photo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.photos) == 0 {
		return model.Photo{}, false
	}
	return c.photos[c.index], true
}

// Status reports the playing flag, the current index and the sequence length.
func (c *Controller) Status() (playing bool, index, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing, c.index, len(c.photos)
}

// Close stops the timer permanently. The controller cannot be restarted.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.playing = false
	c.stopLocked()
}

func (c *Controller) advanceLocked(step int) {
	n := len(c.photos)
	if n == 0 {
		return
	}
	c.index = ((c.index+step)%n + n) % n
}

// restartLocked restarts the tick loop if it should be running.
func (c *Controller) restartLocked() {
	c.stopLocked()
	if c.playing && !c.closed {
		c.startLocked()
	}
}

func (c *Controller) startLocked() {
	interval := c.interval
	// time.NewTicker panics on a non-positive interval; such a controller
	// plays without ever advancing on its own.
	if interval <= 0 {
		return
	}
	stop := make(chan struct{})
	c.stop = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.mu.Lock()
				// The loop may have been superseded between tick and lock.
				if c.stop == stop {
					c.advanceLocked(1)
				}
				c.mu.Unlock()
			}
		}
	}()
}

func (c *Controller) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}
