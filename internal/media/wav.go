package media

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const encodeBitDepth = 16

// ReadWAV decodes the WAV file at path into a mono AudioSignal. Multi-channel
// sources are downmixed by averaging channels.
func ReadWAV(path string) (*AudioSignal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("media: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("media: decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("media: %s holds no audio data", path)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)
	if buf.SourceBitDepth > 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 {
		bitDepth = encodeBitDepth
	}
	scale := float64(int64(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch])
		}
		samples[i] = sum / float64(channels) / scale
	}

	return &AudioSignal{SampleRate: buf.Format.SampleRate, Samples: samples}, nil
}

// WriteWAV encodes the signal as 16-bit mono PCM at path.
func WriteWAV(path string, signal *AudioSignal) error {
	if signal == nil || len(signal.Samples) == 0 {
		return fmt.Errorf("media: refusing to write empty signal to %s", path)
	}
	if signal.SampleRate <= 0 {
		return fmt.Errorf("media: invalid sample rate %d for %s", signal.SampleRate, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("media: create %s: %w", path, err)
	}

	enc := wav.NewEncoder(f, signal.SampleRate, encodeBitDepth, 1, 1)
	scale := float64(int64(1) << (encodeBitDepth - 1))
	data := make([]int, len(signal.Samples))
	for i, v := range signal.Samples {
		v = math.Max(-1, math.Min(1, v))
		n := int(math.Round(v * scale))
		if n > int(scale)-1 {
			n = int(scale) - 1
		}
		data[i] = n
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: signal.SampleRate},
		Data:           data,
		SourceBitDepth: encodeBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("media: encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("media: finalize %s: %w", path, err)
	}
	return f.Close()
}
