package audio

import (
	"math"
	"time"
)

// Inbound frames are raw linear PCM, mono, 16-bit little-endian samples.
// Frames are opaque at the transport boundary and never rejected; these
// helpers exist for session accounting and debug logging only.

// Samples decodes a PCM frame into 16-bit signed samples. A trailing odd
// byte is ignored rather than treated as an error.
func Samples(frame []byte) []int16 {
	samples := make([]int16, len(frame)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int16(frame[i*2]) | int16(frame[i*2+1])<<8
	}
	return samples
}

// CalculateRMS calculates the root mean square (RMS) of audio samples
// Useful for detecting audio levels and silence
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// FrameRMS calculates the RMS level of a raw PCM frame
func FrameRMS(frame []byte) float64 {
	return CalculateRMS(Samples(frame))
}

// Duration returns the playback duration of byteLen bytes of 16-bit mono PCM
// at the given sample rate. Returns 0 for a non-positive sample rate.
func Duration(byteLen, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := byteLen / 2
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}
