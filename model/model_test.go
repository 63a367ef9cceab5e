package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssistantMessageCreatedOnFirstChunk(t *testing.T) {
	c := NewConversation()
	c.AddUser("hello")

	w, err := c.BeginAssistant()
	require.NoError(t, err)
	assert.Len(t, c.Messages(), 1, "no assistant message before the first chunk")

	require.NoError(t, w.Append("A"))
	require.NoError(t, w.Append("B"))
	w.Complete()

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, "AB", msgs[1].Content)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)
	assert.False(t, c.Streaming())
}

func TestAssistantWriterIsExclusive(t *testing.T) {
	c := NewConversation()

	w, err := c.BeginAssistant()
	require.NoError(t, err)

	_, err = c.BeginAssistant()
	assert.ErrorIs(t, err, ErrStreamInProgress)
	assert.ErrorIs(t, c.Reset(), ErrStreamInProgress)

	w.Complete()
	assert.ErrorIs(t, w.Append("late"), ErrWriterClosed)

	_, err = c.BeginAssistant()
	assert.NoError(t, err)
}

func TestAssistantWriterFail(t *testing.T) {
	t.Run("before first chunk", func(t *testing.T) {
		c := NewConversation()
		w, err := c.BeginAssistant()
		require.NoError(t, err)

		w.Fail(errors.New("요청 시간이 초과되었습니다"))

		msgs := c.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "Error: 요청 시간이 초과되었습니다", msgs[0].Content)
	})

	t.Run("after chunks", func(t *testing.T) {
		c := NewConversation()
		w, err := c.BeginAssistant()
		require.NoError(t, err)
		require.NoError(t, w.Append("partial"))

		w.Fail(errors.New("boom"))
		w.Complete()

		msgs := c.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "Error: boom", msgs[0].Content)
	})
}

func TestConnectionTracker(t *testing.T) {
	var tr ConnectionTracker
	assert.Equal(t, ConnectionUnknown, tr.State())

	tr.Report(true)
	assert.Equal(t, "connected", tr.State().String())

	tr.Report(false)
	assert.Equal(t, ConnectionDisconnected, tr.State())

	tr.Reset()
	assert.Equal(t, ConnectionUnknown, tr.State())
}
