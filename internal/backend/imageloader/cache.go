package imageloader

import (
	"image"
	"sync"
	"time"
)

type cacheEntry struct {
	img     image.Image
	touched time.Time
}

// ImageCache keeps decoded images per session so repeated picks do not
// decode the upload again. Safe for concurrent use.
type ImageCache struct {
	mu     sync.Mutex
	images map[string]cacheEntry
	now    func() time.Time
}

func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]cacheEntry),
		now:    time.Now,
	}
}

func (c *ImageCache) Get(sessionID string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.images[sessionID]
	if !ok {
		return nil, false
	}
	entry.touched = c.now()
	c.images[sessionID] = entry
	return entry.img, true
}

func (c *ImageCache) Put(sessionID string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[sessionID] = cacheEntry{img: img, touched: c.now()}
}

// Evict drops the cached image of a session, e.g. after a new upload
func (c *ImageCache) Evict(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.images, sessionID)
}

// EvictOlderThan drops entries not used since cutoff and returns how many
func (c *ImageCache) EvictOlderThan(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for id, entry := range c.images {
		if entry.touched.Before(cutoff) {
			delete(c.images, id)
			evicted++
		}
	}
	return evicted
}

func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}
