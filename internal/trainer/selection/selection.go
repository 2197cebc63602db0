// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_selection

import (
	"sync"

	internal_type "github.com/rapidaai/mimic/internal/trainer/type"
)

// Model maps pointer interactions over rendered words to a contiguous
// time-range selection. A drag accumulates an index range [anchor, extent]
// into the active transcript; commit derives [startTime, endTime) from the
// first and last word. A single click (begin with no extend) selects
// exactly one word.
type Model struct {
	mu         sync.Mutex
	transcript []internal_type.TimeStamp

	anchor     int
	extent     int
	inProgress bool

	committed *internal_type.SelectionRange
}

// NewModel creates a selection model over an empty transcript.
func NewModel() *Model {
	return &Model{}
}

// SetTranscript replaces the active transcript wholesale and drops any
// in-progress or committed selection — word indices from the old transcript
// are meaningless against the new one.
func (m *Model) SetTranscript(stamps []internal_type.TimeStamp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcript = stamps
	m.inProgress = false
	m.committed = nil
}

// Transcript returns the active word list. Callers must not mutate.
func (m *Model) Transcript() []internal_type.TimeStamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transcript
}

// BeginSelection starts a new selection at the given word index. Any
// previously committed selection is replaced wholesale — there is no
// merge/union semantics. Out-of-range indices are ignored.
func (m *Model) BeginSelection(wordIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wordIndex < 0 || wordIndex >= len(m.transcript) {
		return
	}
	m.anchor = wordIndex
	m.extent = wordIndex
	m.inProgress = true
	m.committed = nil
}

// ExtendSelection grows (or shrinks) the in-progress selection to cover the
// given word index. Drag direction is irrelevant: the committed range is
// always normalized to anchor ≤ extent order. No-op when no selection is in
// progress or the index is out of range.
func (m *Model) ExtendSelection(wordIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inProgress || wordIndex < 0 || wordIndex >= len(m.transcript) {
		return
	}
	m.extent = wordIndex
}

// CommitSelection finalizes the in-progress drag into a SelectionRange, or
// returns nil when nothing was accumulated.
func (m *Model) CommitSelection() *internal_type.SelectionRange {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inProgress {
		return nil
	}
	m.inProgress = false

	lo, hi := m.anchor, m.extent
	if lo > hi {
		lo, hi = hi, lo
	}

	words := make([]internal_type.TimeStamp, hi-lo+1)
	copy(words, m.transcript[lo:hi+1])

	m.committed = &internal_type.SelectionRange{
		Words:     words,
		StartTime: words[0].Start,
		EndTime:   words[len(words)-1].Stop,
	}
	return m.committed
}

// Active returns the last committed selection, or nil.
func (m *Model) Active() *internal_type.SelectionRange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.committed
}

// Clear drops both the committed and any in-progress selection.
func (m *Model) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inProgress = false
	m.committed = nil
}
