package websocket

import (
	"errors"
	"fmt"
	"io"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/dispatcher"
	"github.com/rocketscienceinc/gomoku-backend/internal/protocol"
)

// conn carries one message envelope per text frame.
type conn struct {
	ws *gorilla.Conn
}

func newConn(ws *gorilla.Conn) dispatcher.Transport {
	return &conn{ws: ws}
}

func (that *conn) ReadMessage() (protocol.Message, error) {
	kind, payload, err := that.ws.ReadMessage()
	if err != nil {
		if gorilla.IsCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway, gorilla.CloseNoStatusReceived) {
			return nil, io.EOF
		}

		if errors.Is(err, gorilla.ErrReadLimit) {
			return nil, fmt.Errorf("%w: %v", apperror.ErrMalformedMessage, err)
		}

		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	if kind != gorilla.TextMessage {
		return nil, fmt.Errorf("%w: expected a text frame", apperror.ErrMalformedMessage)
	}

	return protocol.Decode(payload)
}

func (that *conn) WriteMessage(msg protocol.Message) error {
	payload, err := protocol.Marshal(msg)
	if err != nil {
		return err
	}

	if err = that.ws.WriteMessage(gorilla.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}

func (that *conn) SetReadDeadline(t time.Time) error {
	return that.ws.SetReadDeadline(t)
}

func (that *conn) SetWriteDeadline(t time.Time) error {
	return that.ws.SetWriteDeadline(t)
}

func (that *conn) RemoteAddr() string {
	return that.ws.RemoteAddr().String()
}

func (that *conn) Close() error {
	return that.ws.Close()
}
