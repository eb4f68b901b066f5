package audio

import (
	"context"
	"fmt"
	"os"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource streams a WAV file as capture frames. It stands in for a live
// microphone during development and replays recorded sessions for scoring.
type WAVSource struct {
	path     string
	realtime bool // pace frames at their wall-clock duration

	file   *os.File
	cancel context.CancelFunc
}

// NewWAVSource creates a Source backed by a WAV file. With realtime set,
// frames are emitted at the cadence a live capture would produce them.
func NewWAVSource(path string, realtime bool) *WAVSource {
	return &WAVSource{path: path, realtime: realtime}
}

// Open decodes the file and starts emitting frames resampled to the
// configured rate. Stereo input is downmixed to mono.
func (s *WAVSource) Open(ctx context.Context, cfg Config) (<-chan Frame, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open wav file: %w", err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("not a valid wav file: %s", s.path)
	}

	s.file = f
	ctx, s.cancel = context.WithCancel(ctx)

	frames := make(chan Frame)
	go s.pump(ctx, dec, cfg, frames)
	return frames, nil
}

func (s *WAVSource) pump(ctx context.Context, dec *wav.Decoder, cfg Config, frames chan<- Frame) {
	defer close(frames)

	numChans := int(dec.NumChans)
	srcRate := int(dec.SampleRate)
	scale := float32(int(1) << (dec.BitDepth - 1))

	chunker := NewFrameChunker(cfg.FrameSize)
	frameDuration := time.Duration(cfg.FrameSize) * time.Second / time.Duration(cfg.SampleRate)

	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{NumChannels: numChans, SampleRate: srcRate},
		Data:   make([]int, 4096),
	}

	emit := func(fr Frame) bool {
		if s.realtime {
			select {
			case <-time.After(frameDuration):
			case <-ctx.Done():
				return false
			}
		}
		select {
		case frames <- fr:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		n, err := dec.PCMBuffer(buf)
		if n == 0 || err != nil {
			break
		}

		// Downmix to mono float32
		mono := make([]float32, 0, n/numChans)
		for i := 0; i+numChans <= n; i += numChans {
			sum := float32(0)
			for c := 0; c < numChans; c++ {
				sum += float32(buf.Data[i+c]) / scale
			}
			mono = append(mono, sum/float32(numChans))
		}

		if srcRate != cfg.SampleRate {
			mono = Resample(mono, srcRate, cfg.SampleRate)
		}

		for _, fr := range chunker.Push(mono) {
			if !emit(fr) {
				return
			}
		}
	}

	if fr, ok := chunker.Flush(); ok {
		emit(fr)
	}
}

// Close stops the pump and releases the file handle. Idempotent.
func (s *WAVSource) Close() error {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}
