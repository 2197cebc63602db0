// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import "time"

// TimeStamp is one word of the reference transcript with its start/stop
// offsets in seconds. Sequences are ordered by Start and immutable once
// parsed; a transcript change replaces the whole sequence.
type TimeStamp struct {
	Start float64 `json:"start"`
	Stop  float64 `json:"stop"`
	Word  string  `json:"word"`
}

// SelectionRange is a contiguous run of transcript words with its derived
// time range [StartTime, EndTime). Words are a sub-sequence of the active
// transcript with no gaps and no reordering.
type SelectionRange struct {
	Words     []TimeStamp `json:"words"`
	StartTime float64     `json:"startTime"`
	EndTime   float64     `json:"endTime"`
}

// RecordingArtifact is a finalized recording. Exactly one artifact is
// current at a time; the recorder creates it and the session coordinator
// releases it when it is replaced or the session tears down.
type RecordingArtifact struct {
	ID        string    `json:"id"`
	MimeType  string    `json:"mimeType"`
	Data      []byte    `json:"-"`
	Duration  float64   `json:"duration"`
	CreatedAt time.Time `json:"createdAt"`
}

// Lane identifies one of the three mutually exclusive playback contexts.
type Lane int

const (
	LaneNone Lane = iota
	LaneTarget
	LaneSelection
	LaneRecording
)

func (l Lane) String() string {
	switch l {
	case LaneTarget:
		return "target"
	case LaneSelection:
		return "selection"
	case LaneRecording:
		return "recording"
	default:
		return "none"
	}
}

// MarshalJSON renders the lane by name; clients match on strings, not on
// enum positions.
func (l Lane) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// PlaybackState is the externally visible state of one lane's engine.
// CurrentTime is authoritative only while not playing; while playing it is
// a wall-clock-anchored projection recomputed every tick.
type PlaybackState struct {
	IsPlaying    bool    `json:"isPlaying"`
	CurrentTime  float64 `json:"currentTime"`
	PlaybackRate float64 `json:"playbackRate"`
	Volume       float64 `json:"volume"`
}
