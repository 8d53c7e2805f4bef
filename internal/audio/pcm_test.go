package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func TestSamples(t *testing.T) {
	values := []int16{0, 1000, -1000, 32767, -32768}
	frame := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(v))
	}

	samples := Samples(frame)
	if len(samples) != len(values) {
		t.Fatalf("Expected %d samples, got %d", len(values), len(samples))
	}
	for i, v := range values {
		if samples[i] != v {
			t.Errorf("Sample %d: expected %d, got %d", i, v, samples[i])
		}
	}
}

func TestSamples_OddLength(t *testing.T) {
	frame := []byte{0x01, 0x02, 0x03}

	samples := Samples(frame)
	if len(samples) != 1 {
		t.Errorf("Expected trailing odd byte to be ignored, got %d samples", len(samples))
	}
}

func TestSamples_Empty(t *testing.T) {
	if got := Samples(nil); len(got) != 0 {
		t.Errorf("Expected no samples for nil frame, got %d", len(got))
	}
}

func TestCalculateRMS(t *testing.T) {
	// Constant amplitude signal has RMS equal to that amplitude
	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = 1000
	}

	rms := CalculateRMS(samples)
	if math.Abs(rms-1000.0) > 0.001 {
		t.Errorf("Expected RMS 1000.0, got %f", rms)
	}
}

func TestCalculateRMS_Silence(t *testing.T) {
	samples := make([]int16, 100)

	rms := CalculateRMS(samples)
	if rms != 0.0 {
		t.Errorf("Expected RMS 0.0 for silence, got %f", rms)
	}
}

func TestCalculateRMS_Empty(t *testing.T) {
	rms := CalculateRMS(nil)
	if rms != 0.0 {
		t.Errorf("Expected RMS 0.0 for empty input, got %f", rms)
	}
}

func TestFrameRMS(t *testing.T) {
	values := []int16{500, -500, 500, -500}
	frame := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(v))
	}

	rms := FrameRMS(frame)
	if math.Abs(rms-500.0) > 0.001 {
		t.Errorf("Expected RMS 500.0, got %f", rms)
	}
}

func TestDuration(t *testing.T) {
	// One second of 16kHz mono 16-bit audio is 32000 bytes
	d := Duration(32000, 16000)
	if d != time.Second {
		t.Errorf("Expected 1s, got %v", d)
	}

	d = Duration(16000, 16000)
	if d != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %v", d)
	}
}

func TestDuration_InvalidRate(t *testing.T) {
	if d := Duration(32000, 0); d != 0 {
		t.Errorf("Expected 0 for zero sample rate, got %v", d)
	}
}
