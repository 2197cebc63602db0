// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_waveform

import (
	"bytes"
	"math"

	"github.com/fogleman/gg"
	internal_audio "github.com/rapidaai/mimic/internal/trainer/audio"
	internal_type "github.com/rapidaai/mimic/internal/trainer/type"
	"github.com/rapidaai/mimic/pkg/commons"
	"github.com/rapidaai/mimic/pkg/utils"
)

// Renderer rasterizes waveform imagery: the static per-column min/max
// envelope of a full clip, optionally overlaid with a committed selection
// band and a playhead marker.
type Renderer struct {
	logger commons.Logger
	width  int
	height int
}

// NewRenderer creates a renderer with the given raster dimensions.
func NewRenderer(logger commons.Logger, width, height int) *Renderer {
	if width <= 0 {
		width = 900
	}
	if height <= 0 {
		height = 140
	}
	return &Renderer{logger: logger, width: width, height: height}
}

// columnExtent is the min/max sample pair backing one pixel column.
type columnExtent struct {
	min float64
	max float64
}

// envelope reduces channel 0 to one min/max pair per pixel column. The
// envelope is computed once per clip; redraws reuse it. Columns past the
// end of a short clip stay at zero.
func (r *Renderer) envelope(buffer *internal_audio.DecodedAudio) []columnExtent {
	cols := make([]columnExtent, r.width)
	samples := buffer.Channel(0)
	if len(samples) == 0 {
		return cols
	}
	perColumn := float64(len(samples)) / float64(r.width)
	for x := 0; x < r.width; x++ {
		lo := int(float64(x) * perColumn)
		hi := int(float64(x+1) * perColumn)
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(samples) {
			hi = len(samples)
		}
		if lo >= len(samples) {
			break
		}
		mn, mx := samples[lo], samples[lo]
		for _, s := range samples[lo:hi] {
			if s < mn {
				mn = s
			}
			if s > mx {
				mx = s
			}
		}
		cols[x] = columnExtent{min: mn, max: mx}
	}
	return cols
}

// Overlay carries the optional decorations drawn on top of the envelope.
type Overlay struct {
	// Selection shades the committed range, nil for none.
	Selection *internal_type.SelectionRange
	// Playhead is the marker position in seconds, negative for none.
	Playhead float64
}

// RenderEnvelope draws the clip envelope as a PNG. A nil buffer renders the
// empty frame rather than failing, so a panel can be shown before load.
func (r *Renderer) RenderEnvelope(buffer *internal_audio.DecodedAudio, overlay Overlay) ([]byte, error) {
	dc := gg.NewContext(r.width, r.height)

	dc.SetRGB(0.08, 0.09, 0.12)
	dc.Clear()

	mid := float64(r.height) / 2
	half := mid - 2

	if buffer != nil {
		duration := buffer.Duration()

		if overlay.Selection != nil && duration > 0 {
			x0 := utils.Clamp(overlay.Selection.StartTime/duration, 0, 1) * float64(r.width)
			x1 := utils.Clamp(overlay.Selection.EndTime/duration, 0, 1) * float64(r.width)
			dc.SetRGBA(0.25, 0.55, 0.95, 0.25)
			dc.DrawRectangle(x0, 0, x1-x0, float64(r.height))
			dc.Fill()
		}

		dc.SetRGB(0.35, 0.78, 0.62)
		for x, col := range r.envelope(buffer) {
			top := mid - col.max*half
			bottom := mid - col.min*half
			if bottom-top < 1 {
				// Silence still draws a hairline so the timeline reads as loaded.
				top = mid - 0.5
				bottom = mid + 0.5
			}
			dc.DrawLine(float64(x)+0.5, top, float64(x)+0.5, bottom)
		}
		dc.SetLineWidth(1)
		dc.Stroke()

		if overlay.Playhead >= 0 && duration > 0 {
			px := utils.Clamp(overlay.Playhead/duration, 0, 1) * float64(r.width)
			dc.SetRGB(0.95, 0.45, 0.25)
			dc.SetLineWidth(2)
			dc.DrawLine(px, 0, px, float64(r.height))
			dc.Stroke()
		}
	}

	var out bytes.Buffer
	if err := dc.EncodePNG(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// RenderScopeFrame draws one oscilloscope frame: a polyline over the given
// window of samples, cleared and redrawn in full each call. Incremental
// damage tracking is not worth it at this raster size.
func (r *Renderer) RenderScopeFrame(window []float64) ([]byte, error) {
	dc := gg.NewContext(r.width, r.height)

	dc.SetRGB(0.08, 0.09, 0.12)
	dc.Clear()

	mid := float64(r.height) / 2
	half := mid - 2

	dc.SetRGB(0.35, 0.78, 0.62)
	dc.SetLineWidth(1.5)
	if len(window) < 2 {
		dc.DrawLine(0, mid, float64(r.width), mid)
	} else {
		step := float64(r.width) / float64(len(window)-1)
		dc.MoveTo(0, mid-clampSample(window[0])*half)
		for i := 1; i < len(window); i++ {
			dc.LineTo(float64(i)*step, mid-clampSample(window[i])*half)
		}
	}
	dc.Stroke()

	var out bytes.Buffer
	if err := dc.EncodePNG(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func clampSample(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	return utils.Clamp(s, -1, 1)
}
