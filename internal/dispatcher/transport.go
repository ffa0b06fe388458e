package dispatcher

import (
	"net"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/protocol"
)

// Transport moves whole messages over one client connection.
type Transport interface {
	ReadMessage() (protocol.Message, error)
	WriteMessage(msg protocol.Message) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() string
	Close() error
}

// streamTransport frames messages over a byte stream with a length prefix.
type streamTransport struct {
	conn    net.Conn
	maxSize uint32
}

func NewStreamTransport(conn net.Conn, maxSize uint32) Transport {
	return &streamTransport{
		conn:    conn,
		maxSize: maxSize,
	}
}

func (that *streamTransport) ReadMessage() (protocol.Message, error) {
	return protocol.ReadMessage(that.conn, that.maxSize)
}

func (that *streamTransport) WriteMessage(msg protocol.Message) error {
	return protocol.WriteMessage(that.conn, msg)
}

func (that *streamTransport) SetReadDeadline(t time.Time) error {
	return that.conn.SetReadDeadline(t)
}

func (that *streamTransport) SetWriteDeadline(t time.Time) error {
	return that.conn.SetWriteDeadline(t)
}

func (that *streamTransport) RemoteAddr() string {
	return that.conn.RemoteAddr().String()
}

func (that *streamTransport) Close() error {
	return that.conn.Close()
}
