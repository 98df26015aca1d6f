// Package media handles time-domain audio signals: WAV decode/encode,
// speech/noise mixing, and the peak bookkeeping the reconstruction path
// needs to restore output loudness.
package media

import (
	"fmt"
	"math"
	"time"
)

// AudioSignal is a mono audio signal with samples normalized to [-1, 1].
type AudioSignal struct {
	SampleRate int
	Samples    []float64
}

// Duration returns the playing time of the signal.
func (s *AudioSignal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.Samples)) / float64(s.SampleRate) * float64(time.Second))
}

// Peak returns the maximum absolute sample value.
func (s *AudioSignal) Peak() float64 {
	peak := 0.0
	for _, v := range s.Samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// Clone returns a deep copy of the signal.
func (s *AudioSignal) Clone() *AudioSignal {
	samples := make([]float64, len(s.Samples))
	copy(samples, s.Samples)
	return &AudioSignal{SampleRate: s.SampleRate, Samples: samples}
}

// Scale multiplies every sample by factor in place.
func (s *AudioSignal) Scale(factor float64) {
	for i := range s.Samples {
		s.Samples[i] *= factor
	}
}

// Normalized returns a copy scaled so its peak is 1. The returned gain is the
// original peak; multiplying the normalized signal by it restores loudness.
// A silent signal is returned unchanged with gain 1.
func (s *AudioSignal) Normalized() (*AudioSignal, float64) {
	peak := s.Peak()
	out := s.Clone()
	if peak == 0 {
		return out, 1
	}
	out.Scale(1 / peak)
	return out, peak
}

// MatchLength truncates or zero-pads the signal in place to n samples so its
// duration lines up with a reference signal.
func (s *AudioSignal) MatchLength(n int) {
	if n < 0 {
		n = 0
	}
	if len(s.Samples) >= n {
		s.Samples = s.Samples[:n]
		return
	}
	padded := make([]float64, n)
	copy(padded, s.Samples)
	s.Samples = padded
}

// Mix sums speech with interference noise. The noise is tiled or truncated to
// the speech duration so the mixture always matches the speech in length.
func Mix(speech, noise *AudioSignal) (*AudioSignal, error) {
	if speech.SampleRate != noise.SampleRate {
		return nil, fmt.Errorf("media: sample rate mismatch: speech %d Hz, noise %d Hz", speech.SampleRate, noise.SampleRate)
	}
	if len(noise.Samples) == 0 {
		return nil, fmt.Errorf("media: noise signal is empty")
	}
	mixed := make([]float64, len(speech.Samples))
	for i := range mixed {
		mixed[i] = speech.Samples[i] + noise.Samples[i%len(noise.Samples)]
	}
	return &AudioSignal{SampleRate: speech.SampleRate, Samples: mixed}, nil
}
