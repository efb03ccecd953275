package fitcommon

import (
	"fmt"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/cwbudde/algo-synthga/waveform"
)

// ReadWAVMono decodes path and averages all channels into one.
func ReadWAVMono(path string) (waveform.Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return waveform.Waveform{}, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return waveform.Waveform{}, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return waveform.Waveform{}, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return waveform.Waveform{}, fmt.Errorf("invalid wav buffer: %s", path)
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		out[i] = sum / float64(ch)
	}
	w, err := waveform.New(out, buf.Format.SampleRate)
	if err != nil {
		return waveform.Waveform{}, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// ResampleIfNeeded converts w to toRate. It returns w unchanged when the
// rates already match.
func ResampleIfNeeded(w waveform.Waveform, toRate int) (waveform.Waveform, error) {
	if w.SampleRate == toRate {
		return w, nil
	}
	if toRate <= 0 {
		return waveform.Waveform{}, fmt.Errorf("%w: %d", waveform.ErrBadSampleRate, toRate)
	}
	r, err := dspresample.NewForRates(
		float64(w.SampleRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return waveform.Waveform{}, err
	}
	return waveform.Waveform{Samples: r.Process(w.Samples), SampleRate: toRate}, nil
}

// WriteMonoWAV writes w as 16-bit PCM, clipping to [-1, 1].
func WriteMonoWAV(path string, w waveform.Waveform) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, w.SampleRate, 16, 1, 1)

	data := make([]float32, len(w.Samples))
	for i, x := range w.Samples {
		data[i] = float32(Clamp(x, -1, 1))
	}
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  w.SampleRate,
			NumChannels: 1,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
