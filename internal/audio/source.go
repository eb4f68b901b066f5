package audio

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"os"
)

// Frame is a block of mono float32 samples in the range [-1, 1].
type Frame []float32

// Config describes the capture format a Source must deliver.
type Config struct {
	SampleRate int // Hz
	FrameSize  int // samples per frame
}

// Source produces frames of captured audio. Implementations own the
// underlying device or file handle exclusively; Close releases it and is
// idempotent. The returned channel is closed when the source is exhausted
// or closed.
type Source interface {
	Open(ctx context.Context, cfg Config) (<-chan Frame, error)
	Close() error
}

// PCMReaderSource adapts an io.Reader of raw PCM16 little-endian mono
// samples into a Source. It is the bridge for platform capture tools
// (e.g. `arecord -f S16_LE -r 16000 -c 1 | captiond`) on hosts without a
// native capture adapter.
type PCMReaderSource struct {
	r      io.Reader
	cancel context.CancelFunc
}

// NewPCMReaderSource creates a Source reading raw PCM16 LE from r
func NewPCMReaderSource(r io.Reader) *PCMReaderSource {
	return &PCMReaderSource{r: r}
}

// NewStdinSource creates a Source reading raw PCM16 LE from standard input
func NewStdinSource() *PCMReaderSource {
	return NewPCMReaderSource(os.Stdin)
}

// Open starts reading frames from the underlying reader
func (s *PCMReaderSource) Open(ctx context.Context, cfg Config) (<-chan Frame, error) {
	ctx, s.cancel = context.WithCancel(ctx)

	frames := make(chan Frame)
	go func() {
		defer close(frames)

		br := bufio.NewReader(s.r)
		raw := make([]byte, cfg.FrameSize*2)
		for {
			if _, err := io.ReadFull(br, raw); err != nil {
				return
			}

			frame := make(Frame, cfg.FrameSize)
			for i := range frame {
				sample := int16(binary.LittleEndian.Uint16(raw[i*2:]))
				frame[i] = float32(sample) / 32768.0
			}

			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	return frames, nil
}

// Close stops the read loop. The underlying reader is closed too when it
// supports closing, so a blocked read is released; stdin is left alone.
func (s *PCMReaderSource) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if c, ok := s.r.(io.Closer); ok && s.r != io.Reader(os.Stdin) {
		return c.Close()
	}
	return nil
}
