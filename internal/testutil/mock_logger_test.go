package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/activetext/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/activetext/internal/testutil"
)

var _ logging.Logger = (*testutil.MockLogger)(nil)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	assert.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	logger.Clear()
	assert.Len(t, logger.GetMessages(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
}

func TestMockLogger_ChildrenShareStore(t *testing.T) {
	root := testutil.NewMockLogger()
	child := root.Named("extractor").With(logging.Int("text_len", 12)).Named("url")

	child.Debug("url truncated", logging.Int("limit", 10))

	msg, ok := root.Find("debug", "url truncated")
	require.True(t, ok)
	assert.Equal(t, "extractor.url", msg.Logger)

	v, ok := msg.Field("text_len")
	require.True(t, ok)
	assert.Equal(t, 12, v)
	v, ok = msg.Field("limit")
	require.True(t, ok)
	assert.Equal(t, 10, v)

	_, ok = msg.Field("missing")
	assert.False(t, ok)
}

func TestMockLogger_WithDoesNotLeakIntoParent(t *testing.T) {
	root := testutil.NewMockLogger()
	_ = root.With(logging.String("k", "v"))

	root.Warn("plain")

	msg, ok := root.Find("warn", "plain")
	require.True(t, ok)
	assert.Empty(t, msg.Fields)
	assert.Empty(t, msg.Logger)
}
