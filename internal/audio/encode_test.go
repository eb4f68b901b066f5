package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodePCM16_Boundaries(t *testing.T) {
	tests := []struct {
		name   string
		sample float32
		want   int16
	}{
		{"zero", 0.0, 0},
		{"full positive", 1.0, 32767},
		{"full negative", -1.0, -32768},
		{"half positive", 0.5, 16383},
		{"half negative", -0.5, -16384},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := EncodePCM16([]float32{tt.sample})
			got := int16(binary.LittleEndian.Uint16(out))
			if got != tt.want {
				t.Errorf("EncodePCM16(%v) = %d, want %d", tt.sample, got, tt.want)
			}
		})
	}
}

func TestEncodePCM16_ClampsOutOfRange(t *testing.T) {
	over := EncodePCM16([]float32{1.5})
	full := EncodePCM16([]float32{1.0})
	if over[0] != full[0] || over[1] != full[1] {
		t.Error("Expected 1.5 to encode identically to 1.0")
	}

	under := EncodePCM16([]float32{-2.0})
	fullNeg := EncodePCM16([]float32{-1.0})
	if under[0] != fullNeg[0] || under[1] != fullNeg[1] {
		t.Error("Expected -2.0 to encode identically to -1.0")
	}
}

func TestEncodePCM16_LittleEndian(t *testing.T) {
	out := EncodePCM16([]float32{1.0})
	if len(out) != 2 {
		t.Fatalf("Expected 2 bytes, got %d", len(out))
	}
	// 32767 = 0x7FFF, little-endian on the wire
	if out[0] != 0xFF || out[1] != 0x7F {
		t.Errorf("Expected [0xFF 0x7F], got [%#x %#x]", out[0], out[1])
	}
}

func TestDecodePCM16_RoundTrip(t *testing.T) {
	in := []float32{0.0, 0.25, -0.25, 1.0, -1.0}
	samples := DecodePCM16(EncodePCM16(in))

	if len(samples) != len(in) {
		t.Fatalf("Expected %d samples, got %d", len(in), len(samples))
	}
	if samples[0] != 0 {
		t.Errorf("Expected 0, got %d", samples[0])
	}
	if samples[3] != 32767 {
		t.Errorf("Expected 32767, got %d", samples[3])
	}
	if samples[4] != -32768 {
		t.Errorf("Expected -32768, got %d", samples[4])
	}
}

func TestDecodePCM16_IgnoresTrailingByte(t *testing.T) {
	samples := DecodePCM16([]byte{0x00, 0x01, 0xFF})
	if len(samples) != 1 {
		t.Errorf("Expected 1 sample, got %d", len(samples))
	}
}

func TestResample_Downsamples(t *testing.T) {
	in := make([]float32, 480) // 10ms at 48kHz
	for i := range in {
		in[i] = float32(i%100) / 100.0
	}

	out := Resample(in, 48000, 16000)

	expected := 160
	if len(out) != expected {
		t.Errorf("Expected %d samples, got %d", expected, len(out))
	}
}

func TestResample_SameRatePassesThrough(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 16000, 16000)
	if len(out) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("Sample %d changed: %v -> %v", i, in[i], out[i])
		}
	}
}
