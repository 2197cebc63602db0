// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_audio

// Config describes a PCM stream layout. All internal buffers are LINEAR16
// little-endian; Config only varies rate and channel count.
type Config struct {
	SampleRate uint32
	Channels   uint16
}

const (
	AudioBytesPerSample = 2  // LINEAR16 → 2 bytes per sample
	AudioBitsPerSample  = 16 // LINEAR16 → 16 bits per sample
	AudioPCMFormat      = 1  // WAV PCM format tag
)

// MIMIC_INTERNAL_AUDIO_CONFIG is the canonical format every capture codec
// is normalized to before hitting the recording timeline.
var MIMIC_INTERNAL_AUDIO_CONFIG = Config{SampleRate: 16000, Channels: 1}

// OPUS_CAPTURE_AUDIO_CONFIG is the decoded opus frame format (browser mics).
var OPUS_CAPTURE_AUDIO_CONFIG = Config{SampleRate: 48000, Channels: 1}

// MULAW_CAPTURE_AUDIO_CONFIG is the µ-law fallback format (narrow mobile
// codec sets, telephony-grade clients).
var MULAW_CAPTURE_AUDIO_CONFIG = Config{SampleRate: 8000, Channels: 1}

// BytesPerSecond returns the PCM byte rate for the config.
func (c Config) BytesPerSecond() int {
	return int(c.SampleRate) * int(c.Channels) * AudioBytesPerSample
}

// FrameSize returns the byte size of one interleaved sample frame.
func (c Config) FrameSize() int {
	return AudioBytesPerSample * int(c.Channels)
}
