// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recorder

import (
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rapidaai/mimic/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// warnCountLogger counts Warnf calls, which the read pump emits once per
// dropped frame.
type warnCountLogger struct {
	commons.Logger
	warns atomic.Int64
}

func (l *warnCountLogger) Warnf(template string, args ...interface{}) {
	l.warns.Add(1)
	l.Logger.Warnf(template, args...)
}

func indexedFrame(i uint32) []byte {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, i)
	return payload
}

func TestWebsocketCaptureDropsFramesWhenBufferFull(t *testing.T) {
	logger := &warnCountLogger{Logger: newTestLogger(t)}
	sources := make(chan *WebsocketCaptureSource, 1)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sources <- NewWebsocketCaptureSource(logger, conn, []string{"linear16"})
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	source := <-sources
	defer source.Close()

	// Overfill the frame buffer while nothing drains it.
	const extra = 3
	for i := 0; i < captureChannelSize+extra; i++ {
		require.NoError(t, client.WriteMessage(websocket.BinaryMessage, indexedFrame(uint32(i))))
	}

	// The pump must keep reading the socket while the buffer is full,
	// dropping the incoming frames instead of stalling.
	deadline := time.After(2 * time.Second)
	for logger.warns.Load() < extra {
		select {
		case <-deadline:
			t.Fatalf("pump stalled: %d of %d overflow frames dropped", logger.warns.Load(), extra)
		case <-time.After(5 * time.Millisecond):
		}
	}

	// The buffered frames are the first ones in, in order.
	for i := 0; i < captureChannelSize; i++ {
		frame := <-source.Frames()
		require.Equal(t, uint32(i), binary.LittleEndian.Uint32(frame.Payload))
	}

	// With room again, delivery resumes.
	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, indexedFrame(99)))
	frame := <-source.Frames()
	assert.Equal(t, uint32(99), binary.LittleEndian.Uint32(frame.Payload))

	// The client closing the socket ends the track.
	require.NoError(t, client.Close())
	_, open := <-source.Frames()
	assert.False(t, open)
}
