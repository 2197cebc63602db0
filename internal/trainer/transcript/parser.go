// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcript

import (
	"strconv"
	"strings"

	internal_type "github.com/rapidaai/mimic/internal/trainer/type"
	"github.com/rapidaai/mimic/pkg/commons"
)

// PlaceholderWord stands in for a row whose word column is empty. The row's
// timing is still usable for selection, so it is kept rather than dropped.
const PlaceholderWord = "(unknown)"

// Parse turns a word-level timing transcript into an ordered TimeStamp
// sequence. The input is line-oriented CSV: a header row (discarded), then
// start,stop,word rows. A malformed row is skipped with a debug log — one
// bad row never empties the transcript. Content that is not CSV-shaped at
// all (an HTML error page served with a 200) yields an empty sequence.
// Parse never fails; callers treat empty as "no transcript available".
func Parse(logger commons.Logger, text string) []internal_type.TimeStamp {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	// Content sniff: a transcript never opens with markup. Servers that
	// return an HTML error page with a 200 status land here.
	if strings.HasPrefix(trimmed, "<") {
		logger.Debugf("transcript: content sniff rejected markup payload")
		return nil
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return nil
	}

	stamps := make([]internal_type.TimeStamp, 0, len(lines)-1)
	for i, line := range lines[1:] { // header discarded
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.SplitN(line, ",", 3)
		if len(fields) < 2 {
			logger.Debugf("transcript: skipping row %d: want 3 fields, got %d", i+2, len(fields))
			continue
		}

		start, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			logger.Debugf("transcript: skipping row %d: bad start %q", i+2, fields[0])
			continue
		}
		stop, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			logger.Debugf("transcript: skipping row %d: bad stop %q", i+2, fields[1])
			continue
		}
		if start > stop {
			logger.Debugf("transcript: skipping row %d: start %f > stop %f", i+2, start, stop)
			continue
		}

		word := PlaceholderWord
		if len(fields) == 3 {
			if w := strings.TrimSpace(fields[2]); w != "" {
				word = w
			}
		}

		stamps = append(stamps, internal_type.TimeStamp{Start: start, Stop: stop, Word: word})
	}
	return stamps
}
