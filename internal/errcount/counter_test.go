package errcount

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterIncrement(t *testing.T) {
	t.Parallel()

	c := New()
	assert.Equal(t, 0, c.Count("handler_error"))

	c.Increment("handler_error", "tx1")
	c.Increment("handler_error", "tx2")
	c.Increment("unparseable_message", "tx3")

	assert.Equal(t, 2, c.Count("handler_error"))
	assert.Equal(t, 1, c.Count("unparseable_message"))
	assert.Equal(t, 0, c.Count("other"))
}

func TestCounterSummary(t *testing.T) {
	t.Parallel()

	c := New()
	c.Increment("handler_error", "tx1")
	c.Increment("handler_error", "tx1")
	c.Increment("unparseable_message", "tx2")

	summary := c.Summary(slog.Default(), "ATOM", "cosmos1abc")
	require.Len(t, summary, 2)
	assert.Equal(t, 2, summary["handler_error"])
	assert.Equal(t, 1, summary["unparseable_message"])
}

func TestCounterSummaryEmpty(t *testing.T) {
	t.Parallel()

	c := New()
	assert.Empty(t, c.Summary(slog.Default(), "ATOM", "cosmos1abc"))
}
