// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_audio

import (
	"encoding/binary"
	"fmt"
)

// Resampler converts LINEAR16 PCM between stream configs. Capture codecs
// deliver 48kHz (opus) or 8kHz (µ-law); the recording timeline runs at the
// internal 16kHz mono config.
type Resampler interface {
	Resample(pcm []byte, from, to Config) ([]byte, error)
}

type linearResampler struct{}

// NewResampler returns the default linear-interpolation resampler. Voice
// capture tolerates linear interpolation; the ratios in play (48k→16k,
// 8k→16k) keep artifacts below what a practice recording can reveal.
func NewResampler() Resampler {
	return linearResampler{}
}

func (linearResampler) Resample(pcm []byte, from, to Config) ([]byte, error) {
	if from.SampleRate == 0 || to.SampleRate == 0 {
		return nil, fmt.Errorf("resample: zero sample rate (from=%d to=%d)", from.SampleRate, to.SampleRate)
	}
	if len(pcm)%from.FrameSize() != 0 {
		return nil, fmt.Errorf("resample: input not frame aligned: %d bytes, frame size %d", len(pcm), from.FrameSize())
	}

	// Downmix to mono first; every internal consumer is mono.
	mono := downmix(pcm, from)
	if from.SampleRate == to.SampleRate && to.Channels == 1 {
		return mono, nil
	}

	inFrames := len(mono) / AudioBytesPerSample
	if inFrames == 0 {
		return []byte{}, nil
	}
	outFrames := int(int64(inFrames) * int64(to.SampleRate) / int64(from.SampleRate))
	out := make([]byte, outFrames*AudioBytesPerSample)

	ratio := float64(from.SampleRate) / float64(to.SampleRate)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)

		s0 := int16(binary.LittleEndian.Uint16(mono[idx*AudioBytesPerSample:]))
		s1 := s0
		if idx+1 < inFrames {
			s1 = int16(binary.LittleEndian.Uint16(mono[(idx+1)*AudioBytesPerSample:]))
		}
		sample := int16(float64(s0) + frac*float64(s1-s0))
		binary.LittleEndian.PutUint16(out[i*AudioBytesPerSample:], uint16(sample))
	}
	return out, nil
}

// downmix averages interleaved channels into a mono LINEAR16 buffer.
func downmix(pcm []byte, cfg Config) []byte {
	if cfg.Channels <= 1 {
		return pcm
	}
	frameSize := cfg.FrameSize()
	frames := len(pcm) / frameSize
	out := make([]byte, frames*AudioBytesPerSample)
	for i := 0; i < frames; i++ {
		var acc int
		base := i * frameSize
		for ch := 0; ch < int(cfg.Channels); ch++ {
			acc += int(int16(binary.LittleEndian.Uint16(pcm[base+ch*AudioBytesPerSample:])))
		}
		binary.LittleEndian.PutUint16(out[i*AudioBytesPerSample:], uint16(int16(acc/int(cfg.Channels))))
	}
	return out
}
