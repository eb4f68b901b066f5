package audio

// FrameChunker regroups arbitrarily sized sample slices into fixed-size
// frames. Decoded file buffers rarely line up with the capture frame size,
// so sources push whatever they read and take back whole frames.
// Not safe for concurrent use; each source owns its own chunker.
type FrameChunker struct {
	size    int
	pending []float32
}

// NewFrameChunker creates a chunker emitting frames of size samples
func NewFrameChunker(size int) *FrameChunker {
	return &FrameChunker{
		size:    size,
		pending: make([]float32, 0, size*2),
	}
}

// Push appends samples and returns all complete frames now available
func (c *FrameChunker) Push(samples []float32) []Frame {
	c.pending = append(c.pending, samples...)

	var frames []Frame
	for len(c.pending) >= c.size {
		frame := make(Frame, c.size)
		copy(frame, c.pending[:c.size])
		frames = append(frames, frame)
		c.pending = c.pending[c.size:]
	}

	// Reclaim the backing array once the leftover is small
	if len(frames) > 0 {
		rest := make([]float32, len(c.pending), c.size*2)
		copy(rest, c.pending)
		c.pending = rest
	}

	return frames
}

// Flush returns any buffered partial frame, zero-padded to the frame size.
// Returns false when nothing is pending.
func (c *FrameChunker) Flush() (Frame, bool) {
	if len(c.pending) == 0 {
		return nil, false
	}

	frame := make(Frame, c.size)
	copy(frame, c.pending)
	c.pending = c.pending[:0]
	return frame, true
}

// Pending returns the number of buffered samples not yet emitted
func (c *FrameChunker) Pending() int {
	return len(c.pending)
}
