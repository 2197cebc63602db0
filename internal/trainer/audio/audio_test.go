// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_audio

import (
	"encoding/binary"
	"testing"

	internal_type "github.com/rapidaai/mimic/internal/trainer/type"
)

// ramp16 builds n LINEAR16 mono samples of a fixed ramp so individual
// samples are recognizable after a roundtrip.
func ramp16(n int) []byte {
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(i%2000-1000)))
	}
	return buf
}

func TestDecodeWAV_RejectsNonRIFF(t *testing.T) {
	_, err := DecodeWAV([]byte("<html>not audio</html>"))
	if err == nil {
		t.Fatal("expected error for non-RIFF input")
	}
	if !internal_type.IsDecodeError(err) {
		t.Fatalf("expected DecodeError, got %T", err)
	}
}

func TestDecodeWAV_RejectsTruncatedHeader(t *testing.T) {
	if _, err := DecodeWAV([]byte("RIFF")); err == nil {
		t.Fatal("expected error for truncated header")
	}
}

func TestDecodeWAV_Roundtrip(t *testing.T) {
	cfg := MIMIC_INTERNAL_AUDIO_CONFIG
	pcm := ramp16(16000) // 1 second
	wav := EncodeWAV(pcm, cfg)

	decoded, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV error: %v", err)
	}
	if decoded.SampleRate != cfg.SampleRate {
		t.Errorf("sample rate: got %d, want %d", decoded.SampleRate, cfg.SampleRate)
	}
	if decoded.SampleCount() != 16000 {
		t.Errorf("sample count: got %d, want 16000", decoded.SampleCount())
	}
	if got := decoded.Duration(); got < 0.999 || got > 1.001 {
		t.Errorf("duration: got %f, want 1.0", got)
	}
	// Spot check one sample: index 100 holds int16 value -900.
	want := float64(-900) / 32768.0
	if got := decoded.Channel(0)[100]; got != want {
		t.Errorf("sample 100: got %f, want %f", got, want)
	}
}

func TestDecodeWAV_SkipsListChunk(t *testing.T) {
	cfg := MIMIC_INTERNAL_AUDIO_CONFIG
	pcm := ramp16(100)
	wav := EncodeWAV(pcm, cfg)

	// Splice a LIST chunk between fmt and data.
	list := append([]byte("LIST"), 0x04, 0x00, 0x00, 0x00, 'I', 'N', 'F', 'O')
	spliced := append([]byte{}, wav[:36]...)
	spliced = append(spliced, list...)
	spliced = append(spliced, wav[36:]...)
	binary.LittleEndian.PutUint32(spliced[4:], uint32(len(spliced)-8))

	decoded, err := DecodeWAV(spliced)
	if err != nil {
		t.Fatalf("DecodeWAV error: %v", err)
	}
	if decoded.SampleCount() != 100 {
		t.Errorf("sample count: got %d, want 100", decoded.SampleCount())
	}
}

func TestWindow_ClampsToBounds(t *testing.T) {
	decoded, err := DecodeWAV(EncodeWAV(ramp16(1000), MIMIC_INTERNAL_AUDIO_CONFIG))
	if err != nil {
		t.Fatalf("DecodeWAV error: %v", err)
	}

	// Window at t=0 must not index below zero.
	w := decoded.Window(0, 256)
	if len(w) != 256 {
		t.Errorf("window at 0: got %d samples, want 256", len(w))
	}
	// Window past the end clamps to the tail.
	w = decoded.Window(999, 256)
	if len(w) != 256 {
		t.Errorf("window past end: got %d samples, want 256", len(w))
	}
	// Request larger than the buffer returns the whole buffer.
	w = decoded.Window(0, 5000)
	if len(w) != 1000 {
		t.Errorf("oversized window: got %d samples, want 1000", len(w))
	}
}

func TestResample_DownAndUp(t *testing.T) {
	r := NewResampler()

	// 48k → 16k: a third of the frames.
	in := ramp16(4800) // 100ms at 48k
	out, err := r.Resample(in, OPUS_CAPTURE_AUDIO_CONFIG, MIMIC_INTERNAL_AUDIO_CONFIG)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	if got := len(out) / 2; got != 1600 {
		t.Errorf("48k→16k: got %d frames, want 1600", got)
	}

	// 8k → 16k: double the frames.
	in = ramp16(800) // 100ms at 8k
	out, err = r.Resample(in, MULAW_CAPTURE_AUDIO_CONFIG, MIMIC_INTERNAL_AUDIO_CONFIG)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	if got := len(out) / 2; got != 1600 {
		t.Errorf("8k→16k: got %d frames, want 1600", got)
	}
}

func TestResample_IdentityIsPassthrough(t *testing.T) {
	r := NewResampler()
	in := ramp16(320)
	out, err := r.Resample(in, MIMIC_INTERNAL_AUDIO_CONFIG, MIMIC_INTERNAL_AUDIO_CONFIG)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("identity resample changed length: %d != %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("identity resample changed byte %d", i)
		}
	}
}

func TestResample_RejectsMisaligned(t *testing.T) {
	r := NewResampler()
	if _, err := r.Resample([]byte{0x01}, MIMIC_INTERNAL_AUDIO_CONFIG, MULAW_CAPTURE_AUDIO_CONFIG); err == nil {
		t.Fatal("expected error for misaligned input")
	}
}

func TestDownmix_AveragesChannels(t *testing.T) {
	stereo := Config{SampleRate: 16000, Channels: 2}
	// One frame: left=100, right=300 → mono 200.
	in := make([]byte, 4)
	binary.LittleEndian.PutUint16(in[0:], uint16(int16(100)))
	binary.LittleEndian.PutUint16(in[2:], uint16(int16(300)))

	out, err := NewResampler().Resample(in, stereo, MIMIC_INTERNAL_AUDIO_CONFIG)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	if got := int16(binary.LittleEndian.Uint16(out)); got != 200 {
		t.Errorf("downmix: got %d, want 200", got)
	}
}
