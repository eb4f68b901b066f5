package audio

import (
	"bytes"
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVBytes wraps raw PCM16 little-endian mono samples in a WAV container.
// The reading-score endpoint expects a complete audio file, not a bare
// sample stream.
func WAVBytes(pcm []byte, sampleRate int) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("pcm data length must be even, got %d", len(pcm))
	}

	samples := DecodePCM16(pcm)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	var ws writeSeekBuffer
	enc := wav.NewEncoder(&ws, sampleRate, 16, 1, 1)
	if err := enc.Write(&gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           data,
	}); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}

	return ws.buf.Bytes(), nil
}

// writeSeekBuffer is an in-memory io.WriteSeeker. The wav encoder seeks
// back to patch chunk sizes, which bytes.Buffer alone cannot do.
type writeSeekBuffer struct {
	buf bytes.Buffer
	pos int
}

func (w *writeSeekBuffer) Write(p []byte) (int, error) {
	if w.pos == w.buf.Len() {
		n, err := w.buf.Write(p)
		w.pos += n
		return n, err
	}

	// Overwrite in place, growing if the write runs past the end
	data := w.buf.Bytes()
	n := copy(data[w.pos:], p)
	if n < len(p) {
		if _, err := w.buf.Write(p[n:]); err != nil {
			return n, err
		}
		n = len(p)
	}
	w.pos += n
	return n, nil
}

func (w *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(w.buf.Len()) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 || abs > int64(w.buf.Len()) {
		return 0, fmt.Errorf("seek out of range: %d", abs)
	}
	w.pos = int(abs)
	return abs, nil
}
