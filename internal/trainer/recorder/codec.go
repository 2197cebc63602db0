// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recorder

import (
	"encoding/binary"
	"fmt"

	internal_audio "github.com/rapidaai/mimic/internal/trainer/audio"
	internal_type "github.com/rapidaai/mimic/internal/trainer/type"
	"github.com/zaf/g711"
	"gopkg.in/hraban/opus.v2"
)

// Codec identifies a supported capture encoding.
type Codec string

const (
	CodecOpus     Codec = "opus"
	CodecLinear16 Codec = "linear16"
	CodecMulaw    Codec = "mulaw"
)

// codecPriority is the negotiation order: best fidelity first, with the
// telephony fallback last. A source that offers none of these cannot be
// captured.
var codecPriority = []Codec{CodecOpus, CodecLinear16, CodecMulaw}

// captureConfigs maps each codec to its wire sample format.
var captureConfigs = map[Codec]internal_audio.Config{
	CodecOpus:     internal_audio.OPUS_CAPTURE_AUDIO_CONFIG,
	CodecLinear16: internal_audio.MIMIC_INTERNAL_AUDIO_CONFIG,
	CodecMulaw:    internal_audio.MULAW_CAPTURE_AUDIO_CONFIG,
}

// NegotiateCodec picks the highest-priority codec present in the offered
// list. The error is a DeviceError because an empty intersection means the
// capture device speaks nothing we can decode.
func NegotiateCodec(offered []string) (Codec, error) {
	for _, want := range codecPriority {
		for _, have := range offered {
			if Codec(have) == want {
				return want, nil
			}
		}
	}
	return "", &internal_type.DeviceError{
		Op:  "negotiate",
		Err: fmt.Errorf("no supported codec in %v", offered),
	}
}

// frameDecoder turns one wire frame into LINEAR16 PCM at the codec's
// capture rate. Decoders are stateful (opus carries inter-frame state) and
// belong to a single capture session.
type frameDecoder interface {
	DecodeFrame(frame []byte) ([]byte, error)
	Config() internal_audio.Config
}

func newFrameDecoder(codec Codec) (frameDecoder, error) {
	switch codec {
	case CodecOpus:
		cfg := captureConfigs[CodecOpus]
		dec, err := opus.NewDecoder(int(cfg.SampleRate), int(cfg.Channels))
		if err != nil {
			return nil, &internal_type.DeviceError{Op: "decoder", Err: err}
		}
		return &opusFrameDecoder{dec: dec, cfg: cfg}, nil
	case CodecLinear16:
		return passthroughDecoder{cfg: captureConfigs[CodecLinear16]}, nil
	case CodecMulaw:
		return mulawDecoder{cfg: captureConfigs[CodecMulaw]}, nil
	default:
		return nil, &internal_type.DeviceError{Op: "decoder", Err: fmt.Errorf("unknown codec %q", codec)}
	}
}

type opusFrameDecoder struct {
	dec *opus.Decoder
	cfg internal_audio.Config
	// pcm is reused across frames; 120ms at 48kHz is the opus maximum.
	pcm [5760]int16
}

func (d *opusFrameDecoder) Config() internal_audio.Config { return d.cfg }

func (d *opusFrameDecoder) DecodeFrame(frame []byte) ([]byte, error) {
	n, err := d.dec.Decode(frame, d.pcm[:])
	if err != nil {
		return nil, &internal_type.DecodeError{Reason: "opus frame", Err: err}
	}
	out := make([]byte, n*int(d.cfg.Channels)*internal_audio.AudioBytesPerSample)
	for i := 0; i < n*int(d.cfg.Channels); i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(d.pcm[i]))
	}
	return out, nil
}

type passthroughDecoder struct {
	cfg internal_audio.Config
}

func (d passthroughDecoder) Config() internal_audio.Config { return d.cfg }

func (d passthroughDecoder) DecodeFrame(frame []byte) ([]byte, error) {
	if len(frame)%d.cfg.FrameSize() != 0 {
		return nil, &internal_type.DecodeError{
			Reason: "linear16 frame",
			Err:    fmt.Errorf("%d bytes not frame aligned", len(frame)),
		}
	}
	out := make([]byte, len(frame))
	copy(out, frame)
	return out, nil
}

type mulawDecoder struct {
	cfg internal_audio.Config
}

func (d mulawDecoder) Config() internal_audio.Config { return d.cfg }

func (d mulawDecoder) DecodeFrame(frame []byte) ([]byte, error) {
	return g711.DecodeUlaw(frame), nil
}
