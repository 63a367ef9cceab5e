package bridge

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxOutgoingMessage is the browser's limit for a single host message.
	MaxOutgoingMessage = 1 << 20
	// MaxIncomingMessage bounds what the host is willing to buffer.
	MaxIncomingMessage = 64 << 20
)

var (
	ErrMessageTooLarge = errors.New("native message too large")
	// ErrInvalidMessage marks a well-framed message whose JSON could not be
	// decoded. The stream itself is still usable.
	ErrInvalidMessage = errors.New("invalid message")
)

// ReadMessage reads one length-prefixed JSON message into v. It returns
// io.EOF when the browser closed the pipe between messages.
func ReadMessage(r io.Reader, v any) error {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("truncated message header: %w", err)
		}
		return err
	}
	if size > MaxIncomingMessage {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, size)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("truncated message body: %w", err)
	}
	if err := json.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}

// WriteMessage encodes v and writes it with its length prefix. Nothing is
// written when the encoded message exceeds MaxOutgoingMessage.
func WriteMessage(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if len(data) > MaxOutgoingMessage {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}

	frame := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)
	_, err = w.Write(frame)
	return err
}
