package bridge

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMessageFraming(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, Request{ID: "1", Type: TypeListPlugins}))

	raw := buf.Bytes()
	size := binary.LittleEndian.Uint32(raw[:4])
	assert.Equal(t, len(raw)-4, int(size))
	assert.JSONEq(t, `{"id":"1","type":"LIST_PLUGINS"}`, string(raw[4:]))
}

func TestReadMessageSequence(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, Request{ID: "1", Type: TypeChat, Text: "안녕"}))
	require.NoError(t, WriteMessage(&buf, Request{ID: "2", Type: TypeListPlugins}))

	var first, second Request
	require.NoError(t, ReadMessage(&buf, &first))
	require.NoError(t, ReadMessage(&buf, &second))
	assert.Equal(t, "안녕", first.Text)
	assert.Equal(t, "2", second.ID)

	var none Request
	assert.ErrorIs(t, ReadMessage(&buf, &none), io.EOF)
}

func TestReadMessageErrors(t *testing.T) {
	t.Run("truncated header", func(t *testing.T) {
		var req Request
		err := ReadMessage(bytes.NewReader([]byte{1, 0}), &req)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("truncated body", func(t *testing.T) {
		frame := []byte{10, 0, 0, 0, '{', '}'}
		var req Request
		err := ReadMessage(bytes.NewReader(frame), &req)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("oversized", func(t *testing.T) {
		header := make([]byte, 4)
		binary.LittleEndian.PutUint32(header, MaxIncomingMessage+1)
		var req Request
		assert.ErrorIs(t, ReadMessage(bytes.NewReader(header), &req), ErrMessageTooLarge)
	})

	t.Run("invalid json keeps the stream usable", func(t *testing.T) {
		var buf bytes.Buffer
		binary.Write(&buf, binary.LittleEndian, uint32(3))
		buf.WriteString("{x}")
		require.NoError(t, WriteMessage(&buf, Request{ID: "ok"}))

		var req Request
		assert.ErrorIs(t, ReadMessage(&buf, &req), ErrInvalidMessage)
		require.NoError(t, ReadMessage(&buf, &req))
		assert.Equal(t, "ok", req.ID)
	})
}

func TestWriteMessageTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMessage(&buf, Response{Data: strings.Repeat("x", MaxOutgoingMessage)})
	assert.ErrorIs(t, err, ErrMessageTooLarge)
	assert.Zero(t, buf.Len())
}
