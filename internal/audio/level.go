package audio

import "math"

// Level is a per-frame loudness measurement for the UI meter.
type Level struct {
	RMS    float64 // Root mean square energy, 0..1
	Peak   float64 // Largest absolute sample, 0..1
	Active bool    // Whether the meter currently considers the input voiced
}

// MeterConfig holds configuration for the level meter
type MeterConfig struct {
	ActivityThreshold float64 // RMS threshold for voiced input
	SilenceFrames     int     // Consecutive quiet frames before Active drops
}

// DefaultMeterConfig returns a default meter configuration
func DefaultMeterConfig() *MeterConfig {
	return &MeterConfig{
		ActivityThreshold: 0.015,
		SilenceFrames:     10, // 200ms at 20ms frames
	}
}

// LevelMeter tracks input loudness and a coarse voiced/quiet state across
// frames. It drives the microphone indicator, not the ASR; speech
// segmentation is the server's job.
type LevelMeter struct {
	config         *MeterConfig
	silenceCounter int
	active         bool
}

// NewLevelMeter creates a new level meter
func NewLevelMeter(config *MeterConfig) *LevelMeter {
	if config == nil {
		config = DefaultMeterConfig()
	}
	return &LevelMeter{config: config}
}

// Process measures one frame and updates the voiced/quiet state
func (m *LevelMeter) Process(frame Frame) Level {
	rms := RMS(frame)
	peak := Peak(frame)

	if rms > m.config.ActivityThreshold {
		m.silenceCounter = 0
		m.active = true
	} else {
		m.silenceCounter++
		if m.silenceCounter >= m.config.SilenceFrames {
			m.active = false
		}
	}

	return Level{RMS: rms, Peak: peak, Active: m.active}
}

// Reset clears the meter state
func (m *LevelMeter) Reset() {
	m.silenceCounter = 0
	m.active = false
}

// RMS calculates the root mean square energy of a frame
func RMS(frame Frame) float64 {
	if len(frame) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// Peak returns the largest absolute sample value in a frame
func Peak(frame Frame) float64 {
	peak := 0.0
	for _, s := range frame {
		abs := math.Abs(float64(s))
		if abs > peak {
			peak = abs
		}
	}
	return peak
}
