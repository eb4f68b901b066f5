package audio

import (
	"math"
	"testing"
)

func sineFrame(amplitude float64, n int) Frame {
	frame := make(Frame, n)
	for i := range frame {
		frame[i] = float32(amplitude * math.Sin(2*math.Pi*float64(i)/float64(n)))
	}
	return frame
}

func TestRMS(t *testing.T) {
	if got := RMS(Frame{}); got != 0 {
		t.Errorf("RMS of empty frame = %v, want 0", got)
	}

	// RMS of a full-scale sine is 1/sqrt(2)
	got := RMS(sineFrame(1.0, 1024))
	want := 1.0 / math.Sqrt2
	if math.Abs(got-want) > 0.01 {
		t.Errorf("RMS of unit sine = %v, want ~%v", got, want)
	}
}

func TestPeak(t *testing.T) {
	frame := Frame{0.1, -0.8, 0.3}
	if got := Peak(frame); math.Abs(got-0.8) > 1e-6 {
		t.Errorf("Peak = %v, want 0.8", got)
	}
}

func TestLevelMeter_ActivityTracking(t *testing.T) {
	meter := NewLevelMeter(&MeterConfig{ActivityThreshold: 0.05, SilenceFrames: 3})

	loud := sineFrame(0.5, 320)
	quiet := sineFrame(0.001, 320)

	level := meter.Process(loud)
	if !level.Active {
		t.Error("Expected loud frame to activate the meter")
	}

	// Stays active through short gaps
	for i := 0; i < 2; i++ {
		level = meter.Process(quiet)
		if !level.Active {
			t.Errorf("Expected meter to stay active through %d quiet frames", i+1)
		}
	}

	// Drops after the silence window
	level = meter.Process(quiet)
	if level.Active {
		t.Error("Expected meter to deactivate after silence window")
	}
}

func TestLevelMeter_Reset(t *testing.T) {
	meter := NewLevelMeter(nil)
	meter.Process(sineFrame(0.5, 320))
	meter.Reset()

	level := meter.Process(sineFrame(0.0001, 320))
	if level.Active {
		t.Error("Expected meter to be inactive after reset")
	}
}
