// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recorder

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rapidaai/mimic/pkg/commons"
)

// Frame is one encoded audio fragment from a capture device.
type Frame struct {
	Payload []byte
}

// CaptureSource abstracts a live audio track. Frames delivers encoded
// frames and is CLOSED by the source when the track ends — the engine
// treats channel close as track release, so a source must never leave the
// channel open after Close. Codecs lists the encodings the device offers.
type CaptureSource interface {
	Codecs() []string
	Frames() <-chan Frame
	Close() error
}

const captureChannelSize = 256

// WebsocketCaptureSource adapts a websocket connection carrying binary
// audio frames into a CaptureSource. The negotiated codec is agreed out of
// band (subprotocol header) before the source is constructed.
type WebsocketCaptureSource struct {
	logger commons.Logger
	conn   *websocket.Conn
	codecs []string

	frames    chan Frame
	closeOnce sync.Once
	cancel    context.CancelFunc
}

// NewWebsocketCaptureSource wraps conn and starts the read pump. The pump
// owns the connection: it closes the frame channel on any read error, which
// the engine observes as end of track.
func NewWebsocketCaptureSource(logger commons.Logger, conn *websocket.Conn, codecs []string) *WebsocketCaptureSource {
	ctx, cancel := context.WithCancel(context.Background())
	s := &WebsocketCaptureSource{
		logger: logger,
		conn:   conn,
		codecs: codecs,
		frames: make(chan Frame, captureChannelSize),
		cancel: cancel,
	}
	go s.readPump(ctx)
	return s
}

func (s *WebsocketCaptureSource) Codecs() []string {
	return s.codecs
}

func (s *WebsocketCaptureSource) Frames() <-chan Frame {
	return s.frames
}

// Close tears down the connection; the read pump then closes the frame
// channel. Safe to call more than once.
func (s *WebsocketCaptureSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		err = s.conn.Close()
	})
	return err
}

func (s *WebsocketCaptureSource) readPump(ctx context.Context) {
	defer close(s.frames)
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Debugf("capture: websocket read ended: %v", err)
			}
			return
		}
		if msgType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}
		select {
		case s.frames <- Frame{Payload: data}:
		default:
			// Capture must never stall the socket; when the buffer is full
			// the incoming frame is dropped rather than blocking.
			s.logger.Warnf("capture: frame buffer full, dropping %d bytes", len(data))
		}
	}
}
