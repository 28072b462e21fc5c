package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilderBasics(t *testing.T) {
	t.Parallel()

	base := NewStd("connection refused")
	err := New(fmt.Errorf("opening database: %w", base)).
		Component("datastore").
		Category(CategoryDatabase).
		Context("host", "localhost").
		Build()

	assert.Equal(t, "opening database: connection refused", err.Error())
	assert.Equal(t, "datastore", err.GetComponent())
	assert.Equal(t, string(CategoryDatabase), err.GetCategory())
	assert.Equal(t, "localhost", err.GetContext()["host"])
	assert.False(t, err.GetTimestamp().IsZero())
	assert.ErrorIs(t, err, base, "wrapping must preserve the error chain")
}

func TestNewf(t *testing.T) {
	t.Parallel()

	err := Newf("event %s not found", "evt-1").
		Category(CategoryNotFound).
		Build()
	assert.Equal(t, "event evt-1 not found", err.Error())
	assert.Equal(t, string(CategoryNotFound), err.GetCategory())
}

func TestErrorAsEnhanced(t *testing.T) {
	t.Parallel()

	inner := Newf("bad input").Category(CategoryValidation).Build()
	wrapped := fmt.Errorf("handling request: %w", inner)

	var enhanced *EnhancedError
	require.ErrorAs(t, wrapped, &enhanced)
	assert.Equal(t, string(CategoryValidation), enhanced.GetCategory())
}

func TestIsMatchesByCategory(t *testing.T) {
	t.Parallel()

	a := Newf("first").Category(CategoryNetwork).Build()
	b := Newf("second").Category(CategoryNetwork).Build()
	c := Newf("third").Category(CategoryDatabase).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

func TestGetContextReturnsCopy(t *testing.T) {
	t.Parallel()

	err := Newf("boom").Context("key", "value").Build()
	ctx := err.GetContext()
	ctx["key"] = "mutated"
	assert.Equal(t, "value", err.GetContext()["key"])
}

func TestComponentDetectionFallback(t *testing.T) {
	t.Parallel()

	// Built from a test file, so no registered component pattern matches.
	err := Newf("anonymous failure").Build()
	assert.NotEmpty(t, err.GetComponent())
}

func TestTiming(t *testing.T) {
	t.Parallel()

	err := Newf("slow query").
		Timing("select", 1500*time.Millisecond).
		Build()
	ctx := err.GetContext()
	assert.Equal(t, "select", ctx["operation"])
	assert.NotNil(t, ctx["duration_ms"])
}

func TestStdCompat(t *testing.T) {
	t.Parallel()

	e1 := NewStd("one")
	e2 := NewStd("two")
	joined := Join(e1, e2)
	assert.ErrorIs(t, joined, e1)
	assert.ErrorIs(t, joined, e2)
	assert.Equal(t, e1, Unwrap(fmt.Errorf("wrap: %w", e1)))
}
