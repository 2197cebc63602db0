// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	internal_type "github.com/rapidaai/mimic/internal/trainer/type"
)

// EncodeWAV wraps raw LINEAR16 PCM in a RIFF/WAVE container.
func EncodeWAV(pcmData []byte, cfg Config) []byte {
	var buf bytes.Buffer
	bps := cfg.BytesPerSecond()

	buf.Write([]byte("RIFF"))
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcmData)))
	buf.Write([]byte("WAVE"))

	buf.Write([]byte("fmt "))
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(AudioPCMFormat))
	binary.Write(&buf, binary.LittleEndian, cfg.Channels)
	binary.Write(&buf, binary.LittleEndian, cfg.SampleRate)
	binary.Write(&buf, binary.LittleEndian, uint32(bps))
	binary.Write(&buf, binary.LittleEndian, uint16(AudioBytesPerSample*int(cfg.Channels)))
	binary.Write(&buf, binary.LittleEndian, uint16(AudioBitsPerSample))

	// data chunk
	buf.Write([]byte("data"))
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcmData)))
	buf.Write(pcmData)

	return buf.Bytes()
}

// DecodeWAV parses a RIFF/WAVE byte stream into a DecodedAudio buffer.
// Only LINEAR16 PCM is accepted; anything else is a DecodeError. Chunks are
// walked rather than assumed at fixed offsets because encoders commonly
// insert LIST/INFO chunks between fmt and data.
func DecodeWAV(data []byte) (*DecodedAudio, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, &internal_type.DecodeError{Reason: "not a RIFF/WAVE stream"}
	}

	var (
		cfg      Config
		bitDepth uint16
		format   uint16
		pcm      []byte
		haveFmt  bool
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			// Tolerate a truncated final data chunk; some writers leave a
			// stale size after streaming.
			if chunkID != "data" {
				return nil, &internal_type.DecodeError{
					Reason: fmt.Sprintf("chunk %q overruns stream", chunkID),
				}
			}
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, &internal_type.DecodeError{Reason: "fmt chunk too short"}
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			cfg.Channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			cfg.SampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bitDepth = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !haveFmt {
		return nil, &internal_type.DecodeError{Reason: "missing fmt chunk"}
	}
	if format != AudioPCMFormat || bitDepth != AudioBitsPerSample {
		return nil, &internal_type.DecodeError{
			Reason: fmt.Sprintf("unsupported format tag %d / %d-bit, need PCM16", format, bitDepth),
		}
	}
	if cfg.Channels == 0 || cfg.SampleRate == 0 {
		return nil, &internal_type.DecodeError{Reason: "zero channels or sample rate"}
	}
	if pcm == nil {
		return nil, &internal_type.DecodeError{Reason: "missing data chunk"}
	}

	return newDecodedAudio(pcm, cfg), nil
}
