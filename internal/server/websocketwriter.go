package server

import (
	"context"
	"io"

	"github.com/coder/websocket"
)

var _ io.Writer = &websocketWriter{}

// websocketWriter sends every Write as a single websocket message.
type websocketWriter struct {
	Ctx         context.Context
	Websocket   *websocket.Conn
	MessageType websocket.MessageType
}

func (w *websocketWriter) Write(b []byte) (int, error) {
	msgType := w.MessageType
	if msgType == 0 {
		msgType = websocket.MessageText
	}

	err := w.Websocket.Write(w.Ctx, msgType, b)
	if err != nil {
		return 0, err
	}

	return len(b), nil
}
