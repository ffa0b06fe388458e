package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
)

const (
	headerSize = 4

	// DefaultMaxFrameSize bounds the payload a peer may announce.
	DefaultMaxFrameSize = 1 << 20
)

type envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Marshal serializes msg into its JSON envelope without framing.
func Marshal(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", msg.Type(), err)
	}

	payload, err := json.Marshal(envelope{Type: msg.Type(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return payload, nil
}

// Encode serializes msg as a 4-byte big-endian length prefix followed by the envelope.
func Encode(msg Message) ([]byte, error) {
	payload, err := Marshal(msg)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[headerSize:], payload)

	return frame, nil
}

// Decode parses one envelope. Any shape mismatch is ErrMalformedMessage.
func Decode(payload []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrMalformedMessage, err)
	}

	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", apperror.ErrMalformedMessage)
	}

	data := env.Data
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%w: %s: missing data", apperror.ErrMalformedMessage, env.Type)
	}

	switch env.Type {
	case TypeCreateRoom:
		return decodeAs[CreateRoom](data)
	case TypeRoomCreated:
		return decodeAs[RoomCreated](data)
	case TypeJoinRoom:
		return decodeAs[JoinRoom](data)
	case TypeBoardState:
		return decodeAs[BoardState](data)
	case TypePlayerJoined:
		return decodeAs[PlayerJoined](data)
	case TypeMakeMove:
		return decodeAs[MakeMove](data)
	case TypeMoveMade:
		return decodeAs[MoveMade](data)
	case TypeReady:
		return decodeAs[Ready](data)
	case TypeChat:
		return decodeAs[Chat](data)
	case TypeGetLeaderboard:
		return decodeAs[GetLeaderboard](data)
	case TypeLeaderboardUpdate:
		return decodeAs[LeaderboardUpdate](data)
	case TypeError:
		return decodeAs[Error](data)
	case TypePlayerDisconnected:
		return decodeAs[PlayerDisconnected](data)
	case TypeGameInterrupted:
		return decodeAs[GameInterrupted](data)
	case TypeRestart:
		return decodeAs[Restart](data)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", apperror.ErrMalformedMessage, env.Type)
	}
}

func decodeAs[T Message](data []byte) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: data is not an object: %v", apperror.ErrMalformedMessage, err)
	}

	var msg T
	for _, name := range msg.required() {
		if _, ok := fields[name]; !ok {
			return nil, fmt.Errorf("%w: %s: missing field %q", apperror.ErrMalformedMessage, msg.Type(), name)
		}
	}

	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperror.ErrMalformedMessage, msg.Type(), err)
	}

	return msg, nil
}

// ReadFrame reads exactly one length-prefixed payload. Short reads are
// retried until the frame is complete or the stream fails.
func ReadFrame(r io.Reader, maxSize uint32) ([]byte, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(header)
	if maxSize > 0 && size > maxSize {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds %d", apperror.ErrMalformedMessage, size, maxSize)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("failed to read frame payload: %w", err)
	}

	return payload, nil
}

// ReadMessage reads and decodes one framed message.
func ReadMessage(r io.Reader, maxSize uint32) (Message, error) {
	payload, err := ReadFrame(r, maxSize)
	if err != nil {
		return nil, err
	}

	return Decode(payload)
}

// WriteMessage encodes msg and writes the whole frame with a single Write.
func WriteMessage(w io.Writer, msg Message) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}

	if _, err = w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}
