package vidra

import "sync"

// imageCache is a concurrent map keyed by AssetId caching decoded RGBA
// images. First reader on a miss decodes and inserts; subsequent readers
// hit.
type imageCache struct {
	mu    sync.RWMutex
	items map[AssetId]*FrameBuffer
}

func newImageCache() *imageCache { return &imageCache{items: make(map[AssetId]*FrameBuffer)} }

func (c *imageCache) getOrLoad(id AssetId, load func() (*FrameBuffer, error)) (*FrameBuffer, error) {
	c.mu.RLock()
	if fb, ok := c.items[id]; ok {
		c.mu.RUnlock()
		return fb, nil
	}
	c.mu.RUnlock()

	fb, err := load()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing, ok := c.items[id]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.items[id] = fb
	c.mu.Unlock()
	return fb, nil
}

// shaderSourceCache is a concurrent map keyed by AssetId, immutable after
// load.
type shaderSourceCache struct {
	mu    sync.RWMutex
	items map[AssetId]string
}

func newShaderSourceCache() *shaderSourceCache {
	return &shaderSourceCache{items: make(map[AssetId]string)}
}

func (c *shaderSourceCache) getOrLoad(id AssetId, load func() (string, error)) (string, error) {
	c.mu.RLock()
	if src, ok := c.items[id]; ok {
		c.mu.RUnlock()
		return src, nil
	}
	c.mu.RUnlock()

	src, err := load()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.items[id] = src
	c.mu.Unlock()
	return src, nil
}

// lutCache is a concurrent map keyed by file path, immutable after parse.
type lutCache struct {
	mu    sync.RWMutex
	items map[string]*Lut
}

func newLutCache() *lutCache { return &lutCache{items: make(map[string]*Lut)} }

func (c *lutCache) getOrLoad(path string, load func() (*Lut, error)) (*Lut, error) {
	c.mu.RLock()
	if lut, ok := c.items[path]; ok {
		c.mu.RUnlock()
		return lut, nil
	}
	c.mu.RUnlock()

	lut, err := load()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.items[path] = lut
	c.mu.Unlock()
	return lut, nil
}

// videoFrameKey identifies one decoded video frame by path and millisecond-
// precision timestamp.
type videoFrameKey struct {
	path string
	ms   int64
}

// videoFrameCache is a concurrent map keyed by (path, ms timestamp).
// Multiple goroutines requesting the same key may race to decode; last
// write wins and both callers see a correct frame.
type videoFrameCache struct {
	mu    sync.RWMutex
	items map[videoFrameKey]*FrameBuffer
}

func newVideoFrameCache() *videoFrameCache {
	return &videoFrameCache{items: make(map[videoFrameKey]*FrameBuffer)}
}

func (c *videoFrameCache) get(key videoFrameKey) (*FrameBuffer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fb, ok := c.items[key]
	return fb, ok
}

func (c *videoFrameCache) put(key videoFrameKey, fb *FrameBuffer) {
	c.mu.Lock()
	c.items[key] = fb
	c.mu.Unlock()
}

// bufferPool recycles FrameBuffers of matching dimensions across frame
// renders, avoiding an allocation per layer per frame in the common case
// where many layers/frames share a size.
type bufferPool struct {
	mu      sync.Mutex
	buckets map[uint64][]*FrameBuffer
}

func newBufferPool() *bufferPool { return &bufferPool{buckets: make(map[uint64][]*FrameBuffer)} }

func poolKey(w, h int) uint64 { return uint64(uint32(w))<<32 | uint64(uint32(h)) }

// Acquire returns a cleared buffer of exactly (w, h).
func (p *bufferPool) Acquire(w, h int) *FrameBuffer {
	key := poolKey(w, h)
	p.mu.Lock()
	if stack := p.buckets[key]; len(stack) > 0 {
		fb := stack[len(stack)-1]
		p.buckets[key] = stack[:len(stack)-1]
		p.mu.Unlock()
		for i := range fb.Pix {
			fb.Pix[i] = 0
		}
		return fb
	}
	p.mu.Unlock()
	return NewFrameBuffer(w, h)
}

// Release returns a buffer to the pool for reuse.
func (p *bufferPool) Release(fb *FrameBuffer) {
	if fb == nil {
		return
	}
	key := poolKey(fb.Width, fb.Height)
	p.mu.Lock()
	p.buckets[key] = append(p.buckets[key], fb)
	p.mu.Unlock()
}
