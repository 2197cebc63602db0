// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_audio

import "encoding/binary"

// DecodedAudio is an in-memory PCM buffer with per-channel sample arrays in
// [-1, 1]. It is owned exclusively by the engine that decoded it and is
// never shared across lanes — each lane decodes its own copy so teardown
// stays independent.
type DecodedAudio struct {
	SampleRate  uint32
	NumChannels uint16
	channels    [][]float64
}

func newDecodedAudio(pcm []byte, cfg Config) *DecodedAudio {
	frameSize := cfg.FrameSize()
	frames := len(pcm) / frameSize
	channels := make([][]float64, cfg.Channels)
	for ch := range channels {
		channels[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		base := i * frameSize
		for ch := 0; ch < int(cfg.Channels); ch++ {
			s := int16(binary.LittleEndian.Uint16(pcm[base+ch*AudioBytesPerSample:]))
			channels[ch][i] = float64(s) / 32768.0
		}
	}
	return &DecodedAudio{
		SampleRate:  cfg.SampleRate,
		NumChannels: cfg.Channels,
		channels:    channels,
	}
}

// SampleCount returns the number of frames per channel.
func (d *DecodedAudio) SampleCount() int {
	if len(d.channels) == 0 {
		return 0
	}
	return len(d.channels[0])
}

// Duration returns the buffer length in seconds.
func (d *DecodedAudio) Duration() float64 {
	if d.SampleRate == 0 {
		return 0
	}
	return float64(d.SampleCount()) / float64(d.SampleRate)
}

// Channel returns the sample array for channel ch. Callers must not mutate.
func (d *DecodedAudio) Channel(ch int) []float64 {
	if ch < 0 || ch >= len(d.channels) {
		return nil
	}
	return d.channels[ch]
}

// Window returns up to n samples of channel 0 centered on the given time,
// clamped to the buffer bounds. Used by the oscilloscope tap.
func (d *DecodedAudio) Window(at float64, n int) []float64 {
	samples := d.Channel(0)
	if len(samples) == 0 || n <= 0 {
		return nil
	}
	center := int(at * float64(d.SampleRate))
	start := center - n/2
	if start < 0 {
		start = 0
	}
	end := start + n
	if end > len(samples) {
		end = len(samples)
		if start = end - n; start < 0 {
			start = 0
		}
	}
	return samples[start:end]
}
